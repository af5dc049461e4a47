// Package api implements the read-only dashboard surface and service
// control actions spec.md §4.5 names: catalog/registry/mesh queries,
// systemd-backed start/stop/restart, and an SSE stream fanning out
// health and config-changed events. A service action reaches the stream
// only through the health frame that follows it; mesh membership changes
// are not broadcast on the stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/eventbus"
	"github.com/payneio/castle/internal/mesh"
	"github.com/payneio/castle/internal/registry"
	"github.com/payneio/castle/internal/secrets"
	"github.com/payneio/castle/internal/systemdctl"
)

// systemdController is the subset of *systemdctl.Controller the API surface
// drives. Declaring it here, at the point of use, lets service-action tests
// substitute a fake rather than needing a real D-Bus connection.
type systemdController interface {
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	Reload(ctx context.Context, unit string) error
	DaemonReload(ctx context.Context) error
	IsActive(ctx context.Context, unit string) (systemdctl.State, error)
}

// Deps is everything the Server needs from the rest of the module. Tests
// construct this directly instead of going through a DI container.
type Deps struct {
	CatalogPath  string
	RegistryPath string
	BinDir       string // where `castle tool install` writes PATH shims
	Identity     registry.NodeIdentity
	Secrets      *secrets.Store
	Mesh         *mesh.StateManager
	MeshClient   *mesh.Client // may be nil if mesh is disabled
	Systemd      systemdController
	Bus          *eventbus.Bus
	Logger       hclog.Logger
}

// Server holds the mutable request-serving state: the in-memory registry
// snapshot, the catalog (re-read per request so edits via the API are
// visible immediately), the SSE hub, and handles to every collaborator.
type Server struct {
	deps Deps

	mu       sync.RWMutex
	registry *registry.NodeRegistry

	hub    *sseHub
	router *mux.Router
}

// New constructs a Server with an empty registry; call SetRegistry once a
// compile has run.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}
	s := &Server{
		deps:     deps,
		registry: registry.New(deps.Identity),
		hub:      newSSEHub(deps.Logger),
	}
	s.router = s.buildRouter()
	return s
}

// Router exposes the wired *mux.Router for http.Serve.
func (s *Server) Router() http.Handler { return s.router }

// SetRegistry replaces the served registry snapshot, e.g. after a
// recompile, and broadcasts a config-changed event.
func (s *Server) SetRegistry(reg *registry.NodeRegistry) {
	s.mu.Lock()
	s.registry = reg
	s.mu.Unlock()
	s.hub.broadcast("config-changed", map[string]bool{"registry": true})
}

func (s *Server) registrySnapshot() *registry.NodeRegistry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

func (s *Server) loadCatalog() (*catalog.Catalog, error) {
	if s.deps.CatalogPath == "" {
		return nil, ErrRepoUnavailable
	}
	cat, err := catalog.Load(s.deps.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRepoUnavailable, err)
	}
	return cat, nil
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/health", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	r.HandleFunc("/programs", s.handleListPrograms).Methods(http.MethodGet)
	r.HandleFunc("/programs/{id}", s.handleGetProgram).Methods(http.MethodGet)
	r.HandleFunc("/services", s.handleListServices).Methods(http.MethodGet)
	r.HandleFunc("/services/{id}", s.handleGetService).Methods(http.MethodGet)
	r.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)

	r.HandleFunc("/tools", s.handleListTools).Methods(http.MethodGet)
	r.HandleFunc("/tools/{id}", s.handleGetTool).Methods(http.MethodGet)
	r.HandleFunc("/tools/{id}/install", s.handleInstallTool).Methods(http.MethodPost)
	r.HandleFunc("/tools/{id}/uninstall", s.handleUninstallTool).Methods(http.MethodPost)

	r.HandleFunc("/services/{id}/start", s.handleServiceAction("start")).Methods(http.MethodPost)
	r.HandleFunc("/services/{id}/stop", s.handleServiceAction("stop")).Methods(http.MethodPost)
	r.HandleFunc("/services/{id}/restart", s.handleServiceAction("restart")).Methods(http.MethodPost)

	r.HandleFunc("/gateway", s.handleGateway).Methods(http.MethodGet)
	r.HandleFunc("/gateway/caddyfile", s.handleGatewayCaddyfile).Methods(http.MethodGet)
	r.HandleFunc("/gateway/reload", s.handleGatewayReload).Methods(http.MethodPost)

	r.HandleFunc("/logs/{id}", s.handleLogs).Methods(http.MethodGet)

	r.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	r.HandleFunc("/config", s.handlePutConfig).Methods(http.MethodPut)
	r.HandleFunc("/config/{kind}/{id}", s.handlePutConfigEntry).Methods(http.MethodPut)
	r.HandleFunc("/config/{kind}/{id}", s.handleDeleteConfigEntry).Methods(http.MethodDelete)
	r.HandleFunc("/config/apply", s.handleConfigApply).Methods(http.MethodPost)

	r.HandleFunc("/secrets", s.handleListSecrets).Methods(http.MethodGet)
	r.HandleFunc("/secrets/{name}", s.handleGetSecret).Methods(http.MethodGet)
	r.HandleFunc("/secrets/{name}", s.handlePutSecret).Methods(http.MethodPut)
	r.HandleFunc("/secrets/{name}", s.handleDeleteSecret).Methods(http.MethodDelete)

	r.HandleFunc("/nodes", s.handleListNodes).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{host}", s.handleGetNode).Methods(http.MethodGet)
	r.HandleFunc("/mesh/status", s.handleMeshStatus).Methods(http.MethodGet)

	r.HandleFunc("/events/publish", s.handleEventsPublish).Methods(http.MethodPost)
	r.HandleFunc("/events/subscribe", s.handleEventsSubscribe).Methods(http.MethodPost)
	r.HandleFunc("/events/unsubscribe", s.handleEventsUnsubscribe).Methods(http.MethodPost)
	r.HandleFunc("/events/topics", s.handleEventsTopics).Methods(http.MethodGet)

	return r
}

// corsMiddleware is permissive throughout — castle is single-user
// (spec.md §4.5).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout*2)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{"statuses": s.pollOnce(ctx)})
}

// StartBackgroundLoops launches the health poller. Callers run this under
// a context cancelled at shutdown (spec.md §5: the poller is one of the
// worker tasks alongside SSE queues, the mesh bridge and sweep).
func (s *Server) StartBackgroundLoops(ctx context.Context) {
	go s.healthPollLoop(ctx)
}

// Shutdown releases SSE subscribers within the ~500ms spec.md §5 allows.
func (s *Server) Shutdown() {
	s.hub.shutdown()
}
