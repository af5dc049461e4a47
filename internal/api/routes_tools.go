package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/payneio/castle/internal/catalog"
)

// toolSummary mirrors the original dashboard's ToolSummary: a program
// exposed as a PATH-installable tool rather than a deployed daemon.
type toolSummary struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description,omitempty"`
	Source             string   `json:"source,omitempty"`
	Stack              string   `json:"stack,omitempty"`
	Version            string   `json:"version,omitempty"`
	SystemDependencies []string `json:"system_dependencies,omitempty"`
	Installed          bool     `json:"installed"`
}

func isTool(p *catalog.Program) bool {
	return (p.Install != nil && p.Install.Path != nil) || p.Tool != nil
}

func (s *Server) toolShimPath(id string, p *catalog.Program) string {
	name := id
	if p.Install != nil && p.Install.Path != nil && p.Install.Path.Alias != "" {
		name = p.Install.Path.Alias
	}
	return filepath.Join(s.deps.BinDir, name)
}

func (s *Server) toolSummary(id string, p *catalog.Program) toolSummary {
	installed := false
	if p.Install != nil && p.Install.Path != nil && p.Install.Path.Enable {
		if _, err := os.Lstat(s.toolShimPath(id, p)); err == nil {
			installed = true
		}
	}
	t := toolSummary{ID: id, Description: p.Description, Source: p.Source, Stack: p.Stack, Installed: installed}
	if p.Tool != nil {
		t.Version = p.Tool.Version
		t.SystemDependencies = p.Tool.SystemDependencies
	}
	return t
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]toolSummary, 0)
	for id, p := range cat.Programs {
		if isTool(p) {
			out = append(out, s.toolSummary(id, p))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := cat.Programs[id]
	if !ok || !isTool(p) {
		writeError(w, errNotFoundProgram(id))
		return
	}
	writeJSON(w, http.StatusOK, s.toolSummary(id, p))
}

// handleInstallTool writes an executable PATH shim for the program under
// deps.BinDir, named by install.path.alias if one is set. The original
// drove this through `uv tool install`; a castled node has no Python
// toolchain assumption to lean on, so it falls back to the install spec
// that was already in the catalog for exactly this case (spec.md §4.1
// install.path, catalog/types.go PathInstallSpec).
func (s *Server) handleInstallTool(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := cat.Programs[id]
	if !ok || !isTool(p) {
		writeError(w, errNotFoundProgram(id))
		return
	}
	if p.Install == nil || p.Install.Path == nil || !p.Install.Path.Enable {
		writeError(w, fmt.Errorf("%w: %s has no install.path.enable set", ErrBadRequest, id))
		return
	}
	if p.Source == "" {
		writeError(w, fmt.Errorf("%w: %s has no source to install", ErrBadRequest, id))
		return
	}
	if err := os.MkdirAll(s.deps.BinDir, 0o755); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	shim := fmt.Sprintf("#!/bin/sh\nexec %q \"$@\"\n", p.Source)
	if err := os.WriteFile(s.toolShimPath(id, p), []byte(shim), 0o755); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "action": "install", "status": "ok"})
}

func (s *Server) handleUninstallTool(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := cat.Programs[id]
	if !ok || !isTool(p) {
		writeError(w, errNotFoundProgram(id))
		return
	}
	if err := os.Remove(s.toolShimPath(id, p)); err != nil && !os.IsNotExist(err) {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "action": "uninstall", "status": "ok"})
}
