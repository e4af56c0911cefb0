package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/manager"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/persist"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/server"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/workspace"
)

const jsonContentType = "application/json"

type stack struct {
	store     storage.Store
	workspace *workspace.Workspace
	server    *httptest.Server
}

func buildStack(testContext *testing.T, databasePath string) *stack {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("open sqlite store: %v", err)
	}

	documentManager, err := manager.New(manager.Config{IDProvider: manager.NewUUIDProvider()})
	if err != nil {
		testContext.Fatalf("build manager: %v", err)
	}
	persistService, err := persist.NewService(persist.Config{Store: store})
	if err != nil {
		testContext.Fatalf("build persist service: %v", err)
	}
	documentWorkspace, err := workspace.New(workspace.Config{
		Manager: documentManager,
		Persist: persistService,
	})
	if err != nil {
		testContext.Fatalf("build workspace: %v", err)
	}
	if err := documentWorkspace.Open(context.Background()); err != nil {
		testContext.Fatalf("open workspace: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Workspace: documentWorkspace,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("build handler: %v", err)
	}

	return &stack{
		store:     store,
		workspace: documentWorkspace,
		server:    httptest.NewServer(handler),
	}
}

func (s *stack) shutdown(testContext *testing.T) {
	testContext.Helper()
	s.server.Close()
	if err := s.workspace.Close(context.Background()); err != nil {
		testContext.Fatalf("close workspace: %v", err)
	}
	if err := s.store.Close(); err != nil {
		testContext.Fatalf("close store: %v", err)
	}
}

func call(testContext *testing.T, method, url, body string) (int, []byte) {
	testContext.Helper()

	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	request, err := http.NewRequest(method, url, reader)
	if err != nil {
		testContext.Fatalf("construct request: %v", err)
	}
	if body != "" {
		request.Header.Set("Content-Type", jsonContentType)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		testContext.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		testContext.Fatalf("read response body: %v", err)
	}
	return response.StatusCode, payload
}

func TestDocumentFlowSurvivesRestart(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "bound.db")

	first := buildStack(testContext, databasePath)

	status, body := call(testContext, http.MethodPost, first.server.URL+"/areas", `{"name":"Research"}`)
	if status != http.StatusCreated {
		testContext.Fatalf("create area: status %d body %s", status, body)
	}
	var area state.Area
	if err := json.Unmarshal(body, &area); err != nil {
		testContext.Fatalf("decode area: %v", err)
	}

	status, body = call(testContext, http.MethodPost, first.server.URL+"/contents", `{"areaId":"`+area.ID+`","title":"Reading list"}`)
	if status != http.StatusCreated {
		testContext.Fatalf("create content: status %d body %s", status, body)
	}
	var content state.Content
	if err := json.Unmarshal(body, &content); err != nil {
		testContext.Fatalf("decode content: %v", err)
	}

	if status, body = call(testContext, http.MethodPost, first.server.URL+"/contents/"+content.ID+"/open", ""); status != http.StatusOK {
		testContext.Fatalf("open content: status %d body %s", status, body)
	}

	if status, body = call(testContext, http.MethodPut, first.server.URL+"/contents/"+content.ID+"/shapes",
		`{"shapes":[{"id":"shape-1","type":"rect","position":{"x":10,"y":20}}]}`); status != http.StatusOK {
		testContext.Fatalf("first push: status %d body %s", status, body)
	}
	if status, body = call(testContext, http.MethodPut, first.server.URL+"/contents/"+content.ID+"/shapes",
		`{"shapes":[{"id":"shape-1","type":"rect","position":{"x":10,"y":20}},{"id":"shape-2","type":"arrow","position":{"x":5,"y":6},"points":[0,0,40,40]}]}`); status != http.StatusOK {
		testContext.Fatalf("second push: status %d body %s", status, body)
	}

	status, body = call(testContext, http.MethodPost, first.server.URL+"/contents/"+content.ID+"/undo", "")
	if status != http.StatusOK {
		testContext.Fatalf("undo: status %d body %s", status, body)
	}
	var undoResult struct {
		Applied bool          `json:"applied"`
		Content state.Content `json:"content"`
	}
	if err := json.Unmarshal(body, &undoResult); err != nil {
		testContext.Fatalf("decode undo response: %v", err)
	}
	if !undoResult.Applied || len(undoResult.Content.Body.Shapes) != 1 {
		testContext.Fatalf("unexpected undo result: %+v", undoResult)
	}

	if status, _ = call(testContext, http.MethodPost, first.server.URL+"/flush", ""); status != http.StatusNoContent {
		testContext.Fatalf("flush: status %d", status)
	}

	status, firstDocument := call(testContext, http.MethodGet, first.server.URL+"/state", "")
	if status != http.StatusOK {
		testContext.Fatalf("read state: status %d", status)
	}

	first.shutdown(testContext)

	second := buildStack(testContext, databasePath)
	defer second.shutdown(testContext)

	status, secondDocument := call(testContext, http.MethodGet, second.server.URL+"/state", "")
	if status != http.StatusOK {
		testContext.Fatalf("read restarted state: status %d", status)
	}
	if string(firstDocument) != string(secondDocument) {
		testContext.Fatalf("expected the document to survive the restart\nbefore: %s\nafter: %s", firstDocument, secondDocument)
	}

	var restored state.AppState
	if err := json.Unmarshal(secondDocument, &restored); err != nil {
		testContext.Fatalf("decode restored document: %v", err)
	}
	restoredContent, found := restored.ContentByID(content.ID)
	if !found {
		testContext.Fatalf("expected the content after restart")
	}
	if len(restoredContent.Body.Shapes) != 1 || restoredContent.Body.Shapes[0].ID != "shape-1" {
		testContext.Fatalf("expected the undone canvas persisted, got %+v", restoredContent.Body.Shapes)
	}
}

func TestExportTamperImportFlow(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "bound.db")
	first := buildStack(testContext, databasePath)
	defer first.shutdown(testContext)

	status, body := call(testContext, http.MethodPost, first.server.URL+"/areas", `{"name":"Archive"}`)
	if status != http.StatusCreated {
		testContext.Fatalf("create area: status %d body %s", status, body)
	}

	status, exported := call(testContext, http.MethodGet, first.server.URL+"/export?compress=true", "")
	if status != http.StatusOK {
		testContext.Fatalf("export: status %d", status)
	}

	second := buildStack(testContext, filepath.Join(testContext.TempDir(), "other.db"))
	defer second.shutdown(testContext)

	var envelope map[string]any
	if err := json.Unmarshal(exported, &envelope); err != nil {
		testContext.Fatalf("decode export envelope: %v", err)
	}
	checksum := envelope["checksum"].(string)
	flipped := "0"
	if checksum[0] == '0' {
		flipped = "1"
	}
	envelope["checksum"] = flipped + checksum[1:]
	tampered, err := json.Marshal(envelope)
	if err != nil {
		testContext.Fatalf("encode tampered envelope: %v", err)
	}

	status, body = call(testContext, http.MethodPost, second.server.URL+"/import", string(tampered))
	if status != http.StatusBadRequest {
		testContext.Fatalf("expected 400 for the tampered file, got %d body %s", status, body)
	}

	status, body = call(testContext, http.MethodPost, second.server.URL+"/import", string(exported))
	if status != http.StatusOK {
		testContext.Fatalf("import: status %d body %s", status, body)
	}
	var imported state.AppState
	if err := json.Unmarshal(body, &imported); err != nil {
		testContext.Fatalf("decode imported document: %v", err)
	}
	if len(imported.Areas) != 1 || imported.Areas[0].Name != "Archive" {
		testContext.Fatalf("unexpected imported document: %+v", imported)
	}
}
