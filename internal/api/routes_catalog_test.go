package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payneio/castle/internal/registry"
)

func TestListServicesAndJobsSplitByScheduleField(t *testing.T) {
	s := testServer(t)
	reg := registry.New(s.deps.Identity)
	reg.Deployed["api"] = &registry.DeployedComponent{Runner: "python", Port: 9001, HealthPath: "/health"}
	reg.Deployed["backup"] = &registry.DeployedComponent{Runner: "command", Schedule: "0 2 * * *"}
	s.SetRegistry(reg)

	w := httptest.NewRecorder()
	s.handleListServices(w, httptest.NewRequest(http.MethodGet, "/services", nil))
	var services []componentSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&services))
	require.Len(t, services, 1)
	assert.Equal(t, "api", services[0].ID)

	w = httptest.NewRecorder()
	s.handleListJobs(w, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	var jobs []componentSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "backup", jobs[0].ID)
}

func TestGetServiceWrongKindIsNotFound(t *testing.T) {
	s := testServer(t)
	reg := registry.New(s.deps.Identity)
	reg.Deployed["backup"] = &registry.DeployedComponent{Runner: "command", Schedule: "0 2 * * *"}
	s.SetRegistry(reg)

	req := httptest.NewRequest(http.MethodGet, "/services/backup", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "backup"})
	w := httptest.NewRecorder()
	s.handleGetService(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProgramsWithoutCatalogPathIsServiceUnavailable(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/programs", nil)
	w := httptest.NewRecorder()
	s.handleListPrograms(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
