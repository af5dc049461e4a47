package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payneio/castle/internal/mesh"
)

func TestListNodesReturnsKnownPeer(t *testing.T) {
	s := testServer(t)
	s.deps.Mesh.UpdateNode("stale-box", &mesh.SanitizedRegistry{Node: mesh.SanitizedNode{Hostname: "stale-box"}})
	// UpdateNode always stamps LastSeen to now, so this peer is fresh; the
	// handling of stale peers is covered by internal/mesh's own tests
	// (state_test.go).
	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	w := httptest.NewRecorder()
	s.handleListNodes(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string][]nodeSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body["nodes"], 1)
	assert.Equal(t, "stale-box", body["nodes"][0].Hostname)
}

func TestGetNodeUnknownHostIsNotFound(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nodes/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"host": "ghost"})
	w := httptest.NewRecorder()
	s.handleGetNode(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMeshStatusReportsOwnIdentity(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/mesh/status", nil)
	w := httptest.NewRecorder()
	s.handleMeshStatus(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "devbox", body["hostname"])
	assert.Equal(t, false, body["connected"])
}
