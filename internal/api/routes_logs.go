package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/payneio/castle/internal/systemdctl"
)

// handleLogs tails a unit's journal. With follow=1 it streams each raw line
// as an SSE data frame as it arrives until the client disconnects; otherwise
// it collects the requested line count and returns one JSON array
// (spec.md §4.5 "GET /logs/{id}").
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	reg := s.registrySnapshot()
	dc, ok := reg.Deployed[id]
	if !ok {
		writeError(w, errNotFoundProgram(id))
		return
	}
	if !dc.Managed {
		writeError(w, fmt.Errorf("%w: %s has no journal, it is unmanaged", ErrBadRequest, id))
		return
	}

	lines := 100
	if v := r.URL.Query().Get("n"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			lines = n
		}
	}
	follow := r.URL.Query().Get("follow") == "1" || r.URL.Query().Get("follow") == "true"

	unit := dc.UnitName(id)
	opts := systemdctl.TailOptions{Lines: lines, Follow: follow}

	if !follow {
		var collected []string
		err := systemdctl.Tail(r.Context(), unit, opts, func(line string) {
			collected = append(collected, line)
		})
		if err != nil {
			writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "lines": collected})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	_ = systemdctl.Tail(r.Context(), unit, opts, func(line string) {
		fmt.Fprintf(w, "data: %s\n\n", line)
		flusher.Flush()
	})
}
