package api

import (
	"fmt"
	"net/http"

	"github.com/payneio/castle/internal/generate"
)

// remoteRoutes assembles the mesh-sourced proxy_path claims the Caddyfile
// generator needs to fold in alongside local ones (spec.md §4.3, §4.4).
func (s *Server) remoteRoutes() []generate.RemoteRoute {
	if s.deps.Mesh == nil {
		return nil
	}
	var out []generate.RemoteRoute
	for hostname, node := range s.deps.Mesh.AllNodes(false) {
		if node.Registry == nil {
			continue
		}
		for _, comp := range node.Registry.Deployed {
			if comp.ProxyPath == "" || comp.Port == 0 {
				continue
			}
			out = append(out, generate.RemoteRoute{ProxyPath: comp.ProxyPath, Hostname: hostname, Port: comp.Port})
		}
	}
	return out
}

func (s *Server) handleGatewayCaddyfile(w http.ResponseWriter, r *http.Request) {
	reg := s.registrySnapshot()
	content, err := generate.Caddyfile(reg.Node.GatewayPort, reg, s.remoteRoutes())
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (s *Server) handleGateway(w http.ResponseWriter, r *http.Request) {
	reg := s.registrySnapshot()
	routes := make([]generate.Route, 0, len(reg.Deployed))
	for _, dc := range reg.Deployed {
		if dc.ProxyPath == "" || dc.Port == 0 {
			continue
		}
		routes = append(routes, generate.Route{ProxyPath: dc.ProxyPath, Host: "127.0.0.1", Port: dc.Port})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"port":   reg.Node.GatewayPort,
		"routes": routes,
		"remote": s.remoteRoutes(),
	})
}

// handleGatewayReload rewrites the generated Caddyfile and reloads the
// gateway unit via systemd, the same write-then-reload pair a compile
// applies to every managed unit (spec.md §4.3).
func (s *Server) handleGatewayReload(w http.ResponseWriter, r *http.Request) {
	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	reg := s.registrySnapshot()

	if _, err := generate.WriteAll(reg, cat, s.remoteRoutes()); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, err))
		return
	}

	if s.deps.Systemd != nil {
		ctx := r.Context()
		if err := s.deps.Systemd.Reload(ctx, gatewayUnit); err != nil {
			writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, err))
			return
		}
	}
	s.hub.broadcast("config-changed", map[string]bool{"gateway": true})
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

const gatewayUnit = "caddy.service"
