package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/payneio/castle/internal/secrets"
)

// handleListSecrets returns names only, never values (spec.md §6 "secrets
// are never returned in list form").
func (s *Server) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Secrets.List()
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"names": names})
}

func (s *Server) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	value, ok, err := s.deps.Secrets.Get(name)
	if err != nil {
		if errors.Is(err, secrets.ErrInvalidName) {
			writeError(w, fmt.Errorf("%w: %s", ErrBadRequest, err))
			return
		}
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	if !ok {
		writeError(w, errNotFoundProgram(name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "value": value})
}

type putSecretRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutSecret(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req putSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, fmt.Errorf("%w: %s", ErrBadRequest, err))
		return
	}
	if err := s.deps.Secrets.Set(name, req.Value); err != nil {
		if errors.Is(err, secrets.ErrInvalidName) {
			writeError(w, fmt.Errorf("%w: %s", ErrBadRequest, err))
			return
		}
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "saved"})
}

// handleDeleteSecret is idempotent: deleting an absent secret is not an
// error (spec.md §6, matching secrets.Store.Delete).
func (s *Server) handleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.deps.Secrets.Delete(name); err != nil {
		if errors.Is(err, secrets.ErrInvalidName) {
			writeError(w, fmt.Errorf("%w: %s", ErrBadRequest, err))
			return
		}
		writeError(w, fmt.Errorf("%w: %s", ErrRepoUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "deleted"})
}

// ErrBadRequest surfaces a malformed request body or an invalid secret
// name as a 422, the same tier ValidationError uses.
var ErrBadRequest = errors.New("invalid request")
