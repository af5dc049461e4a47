package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payneio/castle/internal/registry"
)

func TestGatewayCaddyfileListsLocalRoute(t *testing.T) {
	s := testServer(t)
	reg := registry.New(s.deps.Identity)
	reg.Deployed["api"] = &registry.DeployedComponent{Runner: "python", Port: 9001, ProxyPath: "/api"}
	s.SetRegistry(reg)

	req := httptest.NewRequest(http.MethodGet, "/gateway/caddyfile", nil)
	w := httptest.NewRecorder()
	s.handleGatewayCaddyfile(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api")
}

func TestGatewaySummaryListsRoutes(t *testing.T) {
	s := testServer(t)
	reg := registry.New(s.deps.Identity)
	reg.Deployed["api"] = &registry.DeployedComponent{Runner: "python", Port: 9001, ProxyPath: "/api"}
	s.SetRegistry(reg)

	req := httptest.NewRequest(http.MethodGet, "/gateway", nil)
	w := httptest.NewRecorder()
	s.handleGateway(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api")
}
