package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/bound"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/config"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/manager"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/persist"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/server"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/workspace"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bound-api",
		Short: "Bound document backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newExportCommand(), newImportCommand(), newMigrateCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("storage-driver", defaults.GetString("storage.driver"), "Storage backend (memory, sqlite, badger, surreal)")
	cmd.PersistentFlags().String("storage-path", defaults.GetString("storage.path"), "Path for file-backed storage drivers")
	cmd.PersistentFlags().Int("save-delay-ms", defaults.GetInt("save.delay_ms"), "Debounce window for background saves in milliseconds")
	cmd.PersistentFlags().Int("history-limit", defaults.GetInt("history.limit"), "Maximum undo snapshots per open content")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "storage.path", "storage-path")
	bindFlag(cmd, "save.delay_ms", "save-delay-ms")
	bindFlag(cmd, "history.limit", "history-limit")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func newExportCommand() *cobra.Command {
	var outputPath string
	var compress bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored document to a .bound file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), outputPath, compress)
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "document.bound", "Destination file path")
	cmd.Flags().BoolVar(&compress, "compress", false, "Gzip-compress the document payload")
	return cmd
}

func newImportCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored document with a .bound file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), inputPath)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "Source file path")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the stored document to the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	documentStore, err := openStore(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := documentStore.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	documentManager, err := manager.New(manager.Config{
		Clock:      time.Now,
		IDProvider: manager.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	persistService, err := persist.NewService(persist.Config{
		Store:  documentStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	documentWorkspace, err := workspace.New(workspace.Config{
		Manager:      documentManager,
		Persist:      persistService,
		Logger:       logger,
		SaveDelay:    appConfig.SaveDelay,
		HistoryLimit: appConfig.HistoryLimit,
	})
	if err != nil {
		return err
	}
	if err := documentWorkspace.Open(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := documentWorkspace.Close(closeCtx); err != nil {
			logger.Error("workspace close failed", zap.Error(err))
		}
	}()

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Workspace: documentWorkspace,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("storageDriver", appConfig.StorageDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runExport(ctx context.Context, outputPath string, compress bool) error {
	persistService, logger, cleanup, err := openPersistence(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	document, err := persistService.Load(ctx)
	if err != nil {
		return err
	}
	payload, err := bound.Encode(document, time.Now(), compress)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, payload, 0o644); err != nil {
		return err
	}

	logger.Info("document exported",
		zap.String("path", outputPath),
		zap.Bool("compressed", compress),
		zap.Int("bytes", len(payload)))
	return nil
}

func runImport(ctx context.Context, inputPath string) error {
	persistService, logger, cleanup, err := openPersistence(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	payload, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	document, err := bound.Decode(payload, logger)
	if err != nil {
		return err
	}
	saved, err := persistService.Save(ctx, document)
	if err != nil {
		return err
	}

	logger.Info("document imported",
		zap.String("path", inputPath),
		zap.Int("areas", len(saved.Areas)),
		zap.Int("contents", len(saved.Contents)))
	return nil
}

func runMigrate(ctx context.Context) error {
	persistService, logger, cleanup, err := openPersistence(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Load migrates stale documents and persists them back.
	document, err := persistService.Load(ctx)
	if err != nil {
		return err
	}

	logger.Info("document ready",
		zap.Int("version", document.Version),
		zap.Int("areas", len(document.Areas)),
		zap.Int("contents", len(document.Contents)))
	return nil
}

func openPersistence(ctx context.Context) (*persist.Service, *zap.Logger, func(), error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	documentStore, err := openStore(ctx, appConfig, logger)
	if err != nil {
		logger.Sync() //nolint:errcheck
		return nil, nil, nil, err
	}

	persistService, err := persist.NewService(persist.Config{
		Store:  documentStore,
		Logger: logger,
	})
	if err != nil {
		documentStore.Close() //nolint:errcheck
		logger.Sync()         //nolint:errcheck
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := documentStore.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
		logger.Sync() //nolint:errcheck
	}
	return persistService, logger, cleanup, nil
}

func openStore(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (storage.Store, error) {
	switch appConfig.StorageDriver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverSQLite:
		return storage.OpenSQLite(appConfig.StoragePath, logger)
	case config.DriverBadger:
		return storage.OpenBadger(appConfig.StoragePath, logger)
	case config.DriverSurreal:
		return storage.OpenSurreal(ctx, storage.SurrealConfig{
			Endpoint:  appConfig.SurrealEndpoint,
			Namespace: appConfig.SurrealNamespace,
			Database:  appConfig.SurrealDatabase,
			Username:  appConfig.SurrealUsername,
			Password:  appConfig.SurrealPassword,
			Table:     appConfig.SurrealTable,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", appConfig.StorageDriver)
	}
}
