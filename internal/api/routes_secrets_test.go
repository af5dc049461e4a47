package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretsRoundTrip(t *testing.T) {
	s := testServer(t)

	put := httptest.NewRequest(http.MethodPut, "/secrets/api_token", strings.NewReader(`{"value":"shh"}`))
	put = mux.SetURLVars(put, map[string]string{"name": "api_token"})
	w := httptest.NewRecorder()
	s.handlePutSecret(w, put)
	require.Equal(t, http.StatusOK, w.Code)

	get := httptest.NewRequest(http.MethodGet, "/secrets/api_token", nil)
	get = mux.SetURLVars(get, map[string]string{"name": "api_token"})
	w = httptest.NewRecorder()
	s.handleGetSecret(w, get)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "shh", body["value"])

	list := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	w = httptest.NewRecorder()
	s.handleListSecrets(w, list)
	var listBody map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listBody))
	assert.Contains(t, listBody["names"], "api_token")

	del := httptest.NewRequest(http.MethodDelete, "/secrets/api_token", nil)
	del = mux.SetURLVars(del, map[string]string{"name": "api_token"})
	w = httptest.NewRecorder()
	s.handleDeleteSecret(w, del)
	require.Equal(t, http.StatusOK, w.Code)

	// Deleting again is idempotent.
	w = httptest.NewRecorder()
	s.handleDeleteSecret(w, del)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetSecretMissingIsNotFound(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/secrets/nope", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "nope"})
	w := httptest.NewRecorder()
	s.handleGetSecret(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
