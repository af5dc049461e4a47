package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsSubscribePublishUnsubscribe(t *testing.T) {
	s := testServer(t)

	received := make(chan string, 1)
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- "hit"
		w.WriteHeader(http.StatusOK)
	}))
	defer callback.Close()

	sub := httptest.NewRequest(http.MethodPost, "/events/subscribe", strings.NewReader(
		`{"topic":"deploy","callback_url":"`+callback.URL+`","subscriber":"dashboard"}`))
	w := httptest.NewRecorder()
	s.handleEventsSubscribe(w, sub)
	require.Equal(t, http.StatusOK, w.Code)

	topics := httptest.NewRequest(http.MethodGet, "/events/topics", nil)
	w = httptest.NewRecorder()
	s.handleEventsTopics(w, topics)
	var topicBody map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&topicBody))
	assert.Contains(t, topicBody, "deploy")

	pub := httptest.NewRequest(http.MethodPost, "/events/publish", strings.NewReader(`{"topic":"deploy","payload":{"id":"api"}}`))
	w = httptest.NewRecorder()
	s.handleEventsPublish(w, pub)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber callback was never invoked")
	}

	unsub := httptest.NewRequest(http.MethodPost, "/events/unsubscribe", strings.NewReader(
		`{"topic":"deploy","callback_url":"`+callback.URL+`"}`))
	w = httptest.NewRecorder()
	s.handleEventsUnsubscribe(w, unsub)
	require.Equal(t, http.StatusOK, w.Code)

	var unsubBody map[string]bool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&unsubBody))
	assert.True(t, unsubBody["removed"])
}

func TestEventsPublishMissingTopicIsRejected(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/events/publish", strings.NewReader(`{"payload":1}`))
	w := httptest.NewRecorder()
	s.handleEventsPublish(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
