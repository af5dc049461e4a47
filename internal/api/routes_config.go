package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/generate"
	"github.com/payneio/castle/internal/mesh"
	"github.com/payneio/castle/internal/registry"
)

// handleGetConfig returns the raw castle.yaml bytes, the editing surface
// the CLI and dashboard both round-trip through (spec.md §4.1, §6).
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.deps.CatalogPath == "" {
		writeError(w, ErrRepoUnavailable)
		return
	}
	body, err := os.ReadFile(s.deps.CatalogPath)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handlePutConfig replaces castle.yaml wholesale after validating it
// parses and passes the catalog's own Validate rules (spec.md §4.1: "never
// accepts a catalog that fails validation").
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	if s.deps.CatalogPath == "" {
		writeError(w, ErrRepoUnavailable)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", catalog.ErrInvalidCatalog, err))
		return
	}
	cat, err := catalog.Parse(body)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := cat.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := cat.Save(s.deps.CatalogPath); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handlePutConfigEntry adds one program/service/job by id. The body is the
// entry's YAML exactly as it would appear under programs/services/jobs in
// castle.yaml, keeping this route consistent with GET/PUT /config rather
// than inventing a separate JSON shape for the same data.
func (s *Server) handlePutConfigEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, id := catalog.Kind(vars["kind"]), vars["id"]

	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", catalog.ErrInvalidCatalog, err))
		return
	}

	switch kind {
	case catalog.KindProgram:
		var p catalog.Program
		if yerr := yaml.Unmarshal(body, &p); yerr != nil {
			writeError(w, fmt.Errorf("%w: %s", catalog.ErrInvalidCatalog, yerr))
			return
		}
		err = cat.AddProgram(id, &p)
	case catalog.KindService:
		var svc catalog.Service
		if yerr := yaml.Unmarshal(body, &svc); yerr != nil {
			writeError(w, fmt.Errorf("%w: %s", catalog.ErrInvalidCatalog, yerr))
			return
		}
		err = cat.AddService(id, &svc)
	case catalog.KindJob:
		var j catalog.Job
		if yerr := yaml.Unmarshal(body, &j); yerr != nil {
			writeError(w, fmt.Errorf("%w: %s", catalog.ErrInvalidCatalog, yerr))
			return
		}
		err = cat.AddJob(id, &j)
	default:
		err = fmt.Errorf("%w: unknown kind %q", catalog.ErrInvalidCatalog, kind)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if err := cat.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := cat.Save(s.deps.CatalogPath); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

func (s *Server) handleDeleteConfigEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, id := catalog.Kind(vars["kind"]), vars["id"]

	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := cat.Delete(kind, id); err != nil {
		writeError(w, err)
		return
	}
	if err := cat.Save(s.deps.CatalogPath); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type configApplyRequest struct {
	Component string `json:"component,omitempty"`
}

// handleConfigApply recompiles the registry (optionally scoped to one
// component), regenerates systemd units and the Caddyfile, reloads the
// daemon, and serves the fresh registry — the same apply path `castle
// deploy` drives from the CLI (spec.md §4.2, §4.3).
func (s *Server) handleConfigApply(w http.ResponseWriter, r *http.Request) {
	var req configApplyRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}

	opts := registry.Options{Component: req.Component}
	if req.Component != "" {
		opts.Existing = s.registrySnapshot()
	}
	reg, err := registry.Compile(cat, s.deps.Identity, s.deps.Secrets, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	changed, err := generate.WriteAll(reg, cat, s.remoteRoutes())
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, err))
		return
	}

	if s.deps.Systemd != nil && len(changed) > 0 {
		if err := s.deps.Systemd.DaemonReload(r.Context()); err != nil {
			writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, err))
			return
		}
	}

	if s.deps.RegistryPath != "" {
		_ = registry.Save(s.deps.RegistryPath, reg)
	}

	s.SetRegistry(reg)
	if s.deps.MeshClient != nil {
		_ = s.deps.MeshClient.PublishRegistry(mesh.Sanitize(reg))
	}

	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "registry": reg})
}
