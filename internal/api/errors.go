package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/registry"
)

// writeError maps an internal failure to the HTTP status and body spec.md §7
// assigns it. UnsupportedRunner surfaces as InvalidCatalog, per that table.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]any{"error": err.Error()}

	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		fields := make([]map[string]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, map[string]string{"path": f.Path, "message": f.Msg})
		}
		body["fields"] = fields
	case errors.Is(err, catalog.ErrDuplicateID):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrUnsupportedRunner), errors.Is(err, catalog.ErrInvalidCatalog):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrRepoUnavailable):
		status = http.StatusServiceUnavailable
		body["error"] = "Castle repo not available"
	case errors.Is(err, ErrSystemdAction):
		status = http.StatusInternalServerError
	case errors.Is(err, ErrBadRequest):
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrRepoUnavailable is returned when the catalog's backing repo isn't
// reachable on this node; mesh/registry endpoints keep working regardless
// (spec.md §7).
var ErrRepoUnavailable = errors.New("castle repo not available")

// ErrSystemdAction wraps a non-zero systemd control command result.
var ErrSystemdAction = errors.New("systemd action failed")

func errNotFoundProgram(id string) error {
	return fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
}
