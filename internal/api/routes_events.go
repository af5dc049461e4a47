package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type publishRequest struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

func (s *Server) handleEventsPublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrBadRequest, err))
		return
	}
	if req.Topic == "" {
		writeError(w, fmt.Errorf("%w: topic is required", ErrBadRequest))
		return
	}
	delivered := s.deps.Bus.Publish(req.Topic, req.Payload)
	writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
}

type subscribeRequest struct {
	Topic       string `json:"topic"`
	CallbackURL string `json:"callback_url"`
	Subscriber  string `json:"subscriber,omitempty"`
}

func (s *Server) handleEventsSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrBadRequest, err))
		return
	}
	if req.Topic == "" || req.CallbackURL == "" {
		writeError(w, fmt.Errorf("%w: topic and callback_url are required", ErrBadRequest))
		return
	}
	s.deps.Bus.Subscribe(req.Topic, req.CallbackURL, req.Subscriber)
	writeJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
}

type unsubscribeRequest struct {
	Topic       string `json:"topic"`
	CallbackURL string `json:"callback_url"`
}

// handleEventsUnsubscribe is idempotent: unsubscribing a callback that was
// never registered is not an error, it just reports removed=false.
func (s *Server) handleEventsUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %s", ErrBadRequest, err))
		return
	}
	removed := s.deps.Bus.Unsubscribe(req.Topic, req.CallbackURL)
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleEventsTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Bus.ListTopics())
}
