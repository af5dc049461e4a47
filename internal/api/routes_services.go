package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/payneio/castle/internal/systemdctl"
)

// selfComponentID is the component id castled runs its own API server
// under; a restart targeting it is handled specially below.
const selfComponentID = "api"

// handleServiceAction returns a handler bound to one of start/stop/restart.
// Each action looks up the deployed component, rejects unmanaged ones,
// issues the systemd call, then reads back the unit's ActiveState as the
// truth that overrides the next health broadcast (spec.md §4.5, §8
// scenario 6 "Health override on action").
func (s *Server) handleServiceAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		reg := s.registrySnapshot()
		dc, ok := reg.Deployed[id]
		if !ok {
			writeError(w, errNotFoundProgram(id))
			return
		}
		if !dc.Managed {
			writeError(w, fmt.Errorf("%w: %s is not systemd-managed", ErrSystemdAction, id))
			return
		}
		if s.deps.Systemd == nil {
			writeError(w, fmt.Errorf("%w: no systemd controller configured", ErrSystemdAction))
			return
		}

		unit := dc.UnitName(id)
		ctx := r.Context()

		// A restart of the process serving this very request can sever the
		// connection before a response is written, so the call itself is
		// deferred: acknowledge with 202 first, then issue the restart and
		// read back health on a short-lived goroutine that outlives the
		// request.
		if action == "restart" && id == selfComponentID {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
			go s.deferredRestartAndHealthCheck(unit, id)
			return
		}

		var actionErr error
		switch action {
		case "start":
			actionErr = s.deps.Systemd.Start(ctx, unit)
		case "stop":
			actionErr = s.deps.Systemd.Stop(ctx, unit)
		case "restart":
			actionErr = s.deps.Systemd.Restart(ctx, unit)
		default:
			actionErr = fmt.Errorf("%w: unknown action %q", ErrSystemdAction, action)
		}
		if actionErr != nil {
			writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, actionErr))
			return
		}

		state, err := s.deps.Systemd.IsActive(ctx, unit)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %s", ErrSystemdAction, err))
			return
		}
		up := state == systemdctl.StateActive
		go s.broadcastHealthWithOverride(context.Background(), id, up)
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "action": action, "state": state, "up": up})
	}
}

// deferredRestartAndHealthCheck issues the restart itself off the request
// goroutine, then gives the unit a moment to come back up before
// broadcasting its new health state. Used only for the self-restart case,
// mirroring the original dashboard's deferred-systemctl pattern, which
// schedules the systemctl call itself on the deferred task rather than
// running it inline before the 202 response goes out.
func (s *Server) deferredRestartAndHealthCheck(unit, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	if s.deps.Systemd == nil {
		return
	}
	if err := s.deps.Systemd.Restart(ctx, unit); err != nil {
		s.broadcastHealthWithOverride(ctx, id, false)
		return
	}
	time.Sleep(500 * time.Millisecond)
	state, err := s.deps.Systemd.IsActive(ctx, unit)
	if err != nil {
		s.broadcastHealthWithOverride(ctx, id, false)
		return
	}
	s.broadcastHealthWithOverride(ctx, id, state == systemdctl.StateActive)
}
