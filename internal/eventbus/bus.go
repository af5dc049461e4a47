// Package eventbus implements the collaborator event bus spec.md §4.5
// names: an in-memory subscription table with HTTP POST fan-out. There is
// no retry and no persistence — a subscriber that's down simply misses
// the event.
package eventbus

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	hclog "github.com/hashicorp/go-hclog"
)

// Subscription is one callback registered against a topic.
type Subscription struct {
	Topic       string `json:"topic"`
	CallbackURL string `json:"callback_url"`
	Subscriber  string `json:"subscriber,omitempty"`
}

// Event is the envelope POSTed to every subscriber on a topic.
type Event struct {
	Topic       string `json:"topic"`
	Payload     any    `json:"payload"`
	PublishedAt string `json:"published_at"`
}

// Bus holds the subscription table and a shared HTTP client for delivery.
type Bus struct {
	mu            sync.Mutex
	subscriptions map[string][]Subscription

	client *http.Client
	logger hclog.Logger
}

// New returns a ready-to-use Bus. client is shared across every delivery
// to avoid per-publish connection setup cost.
func New(logger hclog.Logger) *Bus {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Bus{
		subscriptions: map[string][]Subscription{},
		client:        &http.Client{Timeout: 10 * time.Second},
		logger:        logger.Named("eventbus"),
	}
}

// Subscribe registers callbackURL against topic. Re-subscribing the same
// (topic, callbackURL) pair is a no-op.
func (b *Bus) Subscribe(topic, callbackURL, subscriber string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subscriptions[topic] {
		if s.CallbackURL == callbackURL {
			return
		}
	}
	b.subscriptions[topic] = append(b.subscriptions[topic], Subscription{
		Topic: topic, CallbackURL: callbackURL, Subscriber: subscriber,
	})
}

// Unsubscribe removes callbackURL from topic. It is idempotent: removing
// an absent subscription returns false without error.
func (b *Bus) Unsubscribe(topic, callbackURL string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscriptions[topic]
	if !ok {
		return false
	}
	kept := subs[:0]
	removed := false
	for _, s := range subs {
		if s.CallbackURL == callbackURL {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		delete(b.subscriptions, topic)
	} else {
		b.subscriptions[topic] = kept
	}
	return removed
}

// ListTopics returns a snapshot of every topic and its subscribers.
func (b *Bus) ListTopics() map[string][]Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string][]Subscription, len(b.subscriptions))
	for topic, subs := range b.subscriptions {
		cp := make([]Subscription, len(subs))
		copy(cp, subs)
		out[topic] = cp
	}
	return out
}

// Publish fans payload out to every subscriber of topic concurrently,
// fire-and-forget: delivery failures are logged, never retried or
// surfaced to the caller beyond the delivered count.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.Lock()
	subs := append([]Subscription(nil), b.subscriptions[topic]...)
	b.mu.Unlock()

	if len(subs) == 0 {
		return 0
	}

	event := Event{Topic: topic, Payload: payload, PublishedAt: time.Now().UTC().Format(time.RFC3339)}
	body, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("marshal event failed", "topic", topic, "error", err)
		return 0
	}

	var wg sync.WaitGroup
	var delivered atomic.Int32
	for _, sub := range subs {
		wg.Add(1)
		go func(sub Subscription) {
			defer wg.Done()
			if b.deliver(sub, body) {
				delivered.Add(1)
			}
		}(sub)
	}
	wg.Wait()
	return int(delivered.Load())
}

func (b *Bus) deliver(sub Subscription, body []byte) bool {
	resp, err := b.client.Post(sub.CallbackURL, "application/json", bytes.NewReader(body))
	if err != nil {
		b.logger.Warn("delivery failed", "callback_url", sub.CallbackURL, "error", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b.logger.Warn("delivery rejected", "callback_url", sub.CallbackURL, "status", resp.StatusCode)
		return false
	}
	return true
}
