package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "BOUND"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultStoragePath  = "bound.db"
	defaultLogLevel     = "info"
	defaultSaveDelayMS  = 500
	defaultHistoryLimit = 50
	defaultSurrealTable = "bound_documents"
)

// Storage driver names accepted in storage.driver.
const (
	DriverMemory  = "memory"
	DriverSQLite  = "sqlite"
	DriverBadger  = "badger"
	DriverSurreal = "surreal"
)

// AppConfig captures runtime configuration for the API server and the
// storage-facing subcommands.
type AppConfig struct {
	HTTPAddress   string
	StorageDriver string
	StoragePath   string
	LogLevel      string
	SaveDelay     time.Duration
	HistoryLimit  int

	SurrealEndpoint  string
	SurrealNamespace string
	SurrealDatabase  string
	SurrealUsername  string
	SurrealPassword  string
	SurrealTable     string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("storage.driver", DriverSQLite)
	configViper.SetDefault("storage.path", defaultStoragePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("save.delay_ms", defaultSaveDelayMS)
	configViper.SetDefault("history.limit", defaultHistoryLimit)
	configViper.SetDefault("surreal.table", defaultSurrealTable)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		StorageDriver: strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		StoragePath:   configViper.GetString("storage.path"),
		LogLevel:      configViper.GetString("log.level"),
		SaveDelay:     time.Duration(configViper.GetInt("save.delay_ms")) * time.Millisecond,
		HistoryLimit:  configViper.GetInt("history.limit"),

		SurrealEndpoint:  configViper.GetString("surreal.endpoint"),
		SurrealNamespace: configViper.GetString("surreal.namespace"),
		SurrealDatabase:  configViper.GetString("surreal.database"),
		SurrealUsername:  configViper.GetString("surreal.username"),
		SurrealPassword:  configViper.GetString("surreal.password"),
		SurrealTable:     configViper.GetString("surreal.table"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite, DriverBadger:
		if strings.TrimSpace(c.StoragePath) == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.StorageDriver)
		}
	case DriverSurreal:
		if strings.TrimSpace(c.SurrealEndpoint) == "" {
			return fmt.Errorf("surreal.endpoint is required for the surreal driver")
		}
		if strings.TrimSpace(c.SurrealNamespace) == "" || strings.TrimSpace(c.SurrealDatabase) == "" {
			return fmt.Errorf("surreal.namespace and surreal.database are required for the surreal driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, badger, surreal", c.StorageDriver)
	}

	if c.SaveDelay <= 0 {
		return fmt.Errorf("save.delay_ms must be positive")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history.limit must be positive")
	}
	return nil
}
