package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

type nodeSummary struct {
	Hostname string `json:"hostname"`
	Online   bool   `json:"online"`
	Stale    bool   `json:"is_stale"`
	LastSeen string `json:"last_seen"`
	Registry any    `json:"registry,omitempty"`
}

// handleListNodes returns every peer the mesh coordinator has ever heard
// from, stale ones included (spec.md §4.4: "is_stale is advisory, never
// used to drop peers from a snapshot that asks to include them").
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Mesh == nil {
		writeJSON(w, http.StatusOK, map[string][]nodeSummary{"nodes": {}})
		return
	}
	nodes := s.deps.Mesh.AllNodes(true)
	out := make([]nodeSummary, 0, len(nodes))
	for hostname, n := range nodes {
		out = append(out, nodeSummary{
			Hostname: hostname,
			Online:   n.Online,
			Stale:    n.IsStale(),
			LastSeen: n.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
			Registry: n.Registry,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]nodeSummary{"nodes": out})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	host := mux.Vars(r)["host"]
	if s.deps.Mesh == nil {
		writeError(w, errNotFoundProgram(host))
		return
	}
	n := s.deps.Mesh.GetNode(host)
	if n == nil {
		writeError(w, errNotFoundProgram(host))
		return
	}
	writeJSON(w, http.StatusOK, nodeSummary{
		Hostname: host,
		Online:   n.Online,
		Stale:    n.IsStale(),
		LastSeen: n.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
		Registry: n.Registry,
	})
}

// handleMeshStatus reports this node's own identity plus a peer count,
// the summary view the dashboard's mesh widget polls (spec.md §4.4).
func (s *Server) handleMeshStatus(w http.ResponseWriter, r *http.Request) {
	reg := s.registrySnapshot()
	peers := 0
	if s.deps.Mesh != nil {
		peers = len(s.deps.Mesh.AllNodes(true))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hostname":     reg.Node.Hostname,
		"gateway_port": reg.Node.GatewayPort,
		"peer_count":   peers,
		"connected":    s.deps.MeshClient != nil,
	})
}
