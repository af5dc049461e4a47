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

const toolCatalogYAML = `gateway:
  port: 9000
programs:
  fmt-tool:
    source: tools/fmt-tool/fmt_tool.py
    stack: python
    install:
      path:
        enable: true
        alias: fmtt
        shim: true
    tool:
      version: "1.0"
  bare-program:
    source: programs/bare
services: {}
jobs: {}
`

func testServerWithToolCatalog(t *testing.T) *Server {
	t.Helper()
	s := testServer(t)
	path := filepath.Join(t.TempDir(), "castle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(toolCatalogYAML), 0o644))
	s.deps.CatalogPath = path
	s.deps.BinDir = filepath.Join(t.TempDir(), "bin")
	return s
}

func TestListToolsOnlyIncludesInstallableOrToolPrograms(t *testing.T) {
	s := testServerWithToolCatalog(t)
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	w := httptest.NewRecorder()
	s.handleListTools(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fmt-tool")
	assert.NotContains(t, w.Body.String(), "bare-program")
}

func TestInstallToolWritesShimAndUninstallRemovesIt(t *testing.T) {
	s := testServerWithToolCatalog(t)

	req := httptest.NewRequest(http.MethodPost, "/tools/fmt-tool/install", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "fmt-tool"})
	w := httptest.NewRecorder()
	s.handleInstallTool(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	shimPath := filepath.Join(s.deps.BinDir, "fmtt")
	contents, err := os.ReadFile(shimPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(contents), "tools/fmt-tool/fmt_tool.py"))

	req = httptest.NewRequest(http.MethodPost, "/tools/fmt-tool/uninstall", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "fmt-tool"})
	w = httptest.NewRecorder()
	s.handleUninstallTool(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = os.Stat(shimPath)
	assert.True(t, os.IsNotExist(err))
}

func TestInstallToolOnNonToolProgramIsNotFound(t *testing.T) {
	s := testServerWithToolCatalog(t)
	// bare-program has no install spec at all, but it's also not a tool,
	// so this exercises the not-found branch rather than the bad-request
	// one — a program only reaches the install handler once it's a tool.
	req := httptest.NewRequest(http.MethodPost, "/tools/bare-program/install", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "bare-program"})
	w := httptest.NewRecorder()
	s.handleInstallTool(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
