package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalCatalogYAML = `gateway:
  port: 9000
programs:
  api:
    source: programs/api
    stack: python-fastapi
services: {}
jobs: {}
`

func testServerWithCatalog(t *testing.T) (*Server, string) {
	t.Helper()
	s := testServer(t)
	path := filepath.Join(t.TempDir(), "castle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalCatalogYAML), 0o644))
	s.deps.CatalogPath = path
	return s, path
}

func TestGetConfigReturnsRawYAML(t *testing.T) {
	s, _ := testServerWithCatalog(t)
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()
	s.handleGetConfig(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "python-fastapi")
}

func TestPutConfigRejectsInvalidCatalog(t *testing.T) {
	s, _ := testServerWithCatalog(t)
	req := httptest.NewRequest(http.MethodPut, "/config", strings.NewReader("not: [valid"))
	w := httptest.NewRecorder()
	s.handlePutConfig(w, req)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestPutConfigEntryAddsService(t *testing.T) {
	s, path := testServerWithCatalog(t)
	body := "component: api\nrun:\n  runner: python\n  tool: api\n"
	req := httptest.NewRequest(http.MethodPut, "/config/services/api", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"kind": "services", "id": "api"})
	w := httptest.NewRecorder()
	s.handlePutConfigEntry(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "services:")
}

func TestDeleteConfigEntryUnknownIsNotFound(t *testing.T) {
	s, _ := testServerWithCatalog(t)
	req := httptest.NewRequest(http.MethodDelete, "/config/services/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "services", "id": "ghost"})
	w := httptest.NewRecorder()
	s.handleDeleteConfigEntry(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfigApplyCompilesRegistry(t *testing.T) {
	s, _ := testServerWithCatalog(t)
	req := httptest.NewRequest(http.MethodPost, "/config/apply", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	s.handleConfigApply(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
