package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	hclog "github.com/hashicorp/go-hclog"
)

func TestSSEHubBroadcastDropsOnFullQueue(t *testing.T) {
	hub := newSSEHub(hclog.NewNullLogger())
	ch := hub.subscribe()

	for i := 0; i < sseQueueCapacity; i++ {
		hub.broadcast("health", i)
	}
	// One more push should overflow the bounded queue and drop this
	// subscriber rather than block.
	hub.broadcast("health", "overflow")

	hub.mu.Lock()
	_, stillSubscribed := hub.subs[ch]
	hub.mu.Unlock()
	assert.False(t, stillSubscribed)
}

func TestSSEHubShutdownClosesSubscribers(t *testing.T) {
	hub := newSSEHub(hclog.NewNullLogger())
	ch := hub.subscribe()
	hub.shutdown()

	frame, ok := <-ch
	assert.True(t, ok)
	assert.Equal(t, "shutdown", frame.event)

	_, ok = <-ch
	assert.False(t, ok)
}
