package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// programSummary and componentSummary (used for services and jobs) mirror the catalog +
// deployed-state merge spec.md §4.5 requires: "deployed state always
// wins over catalog defaults on the same id."
type programSummary struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Stack       string   `json:"stack,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type componentSummary struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Runner      string `json:"runner,omitempty"`
	Port        int    `json:"port,omitempty"`
	HealthPath  string `json:"health_path,omitempty"`
	ProxyPath   string `json:"proxy_path,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	Managed     bool   `json:"managed,omitempty"`
	Stack       string `json:"stack,omitempty"`
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]programSummary, 0, len(cat.Programs))
	for id, p := range cat.Programs {
		out = append(out, programSummary{ID: id, Description: p.Description, Stack: p.Stack, Tags: p.Tags})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cat, err := s.loadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := cat.Programs[id]
	if !ok {
		writeError(w, errNotFoundProgram(id))
		return
	}
	writeJSON(w, http.StatusOK, programSummary{ID: id, Description: p.Description, Stack: p.Stack, Tags: p.Tags})
}

// componentSummaries projects the deployed registry (never the catalog
// defaults) into a list of the given kind. Deployed state always wins
// over catalog defaults on the same id (spec.md §4.5).
func (s *Server) componentSummaries(job bool) []componentSummary {
	reg := s.registrySnapshot()
	var out []componentSummary
	for id, dc := range reg.Deployed {
		if (dc.Schedule != "") != job {
			continue
		}
		out = append(out, componentSummary{
			ID:          id,
			Description: dc.Description,
			Runner:      dc.Runner,
			Port:        dc.Port,
			HealthPath:  dc.HealthPath,
			ProxyPath:   dc.ProxyPath,
			Schedule:    dc.Schedule,
			Managed:     dc.Managed,
			Stack:       dc.Stack,
		})
	}
	return out
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.componentSummaries(false))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.componentSummaries(true))
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	s.getComponent(w, r, false)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	s.getComponent(w, r, true)
}

func (s *Server) getComponent(w http.ResponseWriter, r *http.Request, job bool) {
	id := mux.Vars(r)["id"]
	reg := s.registrySnapshot()
	dc, ok := reg.Deployed[id]
	if !ok || (dc.Schedule != "") != job {
		writeError(w, errNotFoundProgram(id))
		return
	}
	writeJSON(w, http.StatusOK, componentSummary{
		ID:          id,
		Description: dc.Description,
		Runner:      dc.Runner,
		Port:        dc.Port,
		HealthPath:  dc.HealthPath,
		ProxyPath:   dc.ProxyPath,
		Schedule:    dc.Schedule,
		Managed:     dc.Managed,
		Stack:       dc.Stack,
	})
}
