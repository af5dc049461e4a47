package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	hclog "github.com/hashicorp/go-hclog"
)

// sseQueueCapacity bounds each subscriber's pending-frame queue. A full
// queue drops that subscriber rather than block the broadcaster
// (spec.md §4.5 "slow-consumer policy").
const sseQueueCapacity = 64

type sseFrame struct {
	event string
	data  any
}

// sseHub owns the list of connected SSE clients. Its subscriber map is
// guarded by mu, so broadcast may be called from several goroutines (the
// health poller and the config routes).
type sseHub struct {
	mu     sync.Mutex
	subs   map[chan sseFrame]string // channel -> subscriber id
	logger hclog.Logger
}

func newSSEHub(logger hclog.Logger) *sseHub {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &sseHub{subs: map[chan sseFrame]string{}, logger: logger.Named("sse")}
}

// subscribe registers a new client and tags it with an opaque id, used only
// for logging; callers that need the id (the stream handler, for its
// "connected" frame) get it back from subscribeWithID.
func (h *sseHub) subscribe() chan sseFrame {
	ch, _ := h.subscribeWithID()
	return ch
}

func (h *sseHub) subscribeWithID() (chan sseFrame, string) {
	ch := make(chan sseFrame, sseQueueCapacity)
	id := uuid.NewString()
	h.mu.Lock()
	h.subs[ch] = id
	h.mu.Unlock()
	h.logger.Debug("subscriber connected", "id", id)
	return ch, id
}

func (h *sseHub) unsubscribe(ch chan sseFrame) {
	h.mu.Lock()
	id := h.subs[ch]
	delete(h.subs, ch)
	h.mu.Unlock()
	h.logger.Debug("subscriber disconnected", "id", id)
}

// broadcast attempts a non-blocking enqueue on every subscriber queue; a
// full queue means that subscriber is dropped, never that the broadcaster
// blocks (spec.md §4.5, §8: "broadcast does not block").
func (h *sseHub) broadcast(event string, data any) {
	frame := sseFrame{event: event, data: data}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- frame:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// shutdown enqueues a sentinel frame to every subscriber so their
// generators can exit, then clears the subscriber set (spec.md §4.5).
func (h *sseHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- sseFrame{event: "shutdown"}:
		default:
		}
		close(ch)
		delete(h.subs, ch)
	}
}

func writeSSEFrame(w http.ResponseWriter, frame sseFrame) error {
	body, err := json.Marshal(frame.data)
	if err != nil {
		return fmt.Errorf("marshal sse frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.event, body)
	return err
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch, id := s.hub.subscribeWithID()
	defer s.hub.unsubscribe(ch)

	if err := writeSSEFrame(w, sseFrame{event: "connected", data: map[string]any{"connected": true, "subscriber_id": id}}); err != nil {
		return
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if frame.event == "shutdown" {
				return
			}
			if err := writeSSEFrame(w, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
