package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payneio/castle/internal/registry"
	"github.com/payneio/castle/internal/systemdctl"
)

// fakeSystemd records calls instead of touching a real D-Bus connection.
type fakeSystemd struct {
	mu       sync.Mutex
	restarts []string
	calls    []string
}

func (f *fakeSystemd) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeSystemd) Start(ctx context.Context, unit string) error {
	f.record("start:" + unit)
	return nil
}

func (f *fakeSystemd) Stop(ctx context.Context, unit string) error {
	f.record("stop:" + unit)
	return nil
}

func (f *fakeSystemd) Restart(ctx context.Context, unit string) error {
	f.mu.Lock()
	f.restarts = append(f.restarts, unit)
	f.mu.Unlock()
	f.record("restart:" + unit)
	return nil
}

func (f *fakeSystemd) Reload(ctx context.Context, unit string) error { return nil }
func (f *fakeSystemd) DaemonReload(ctx context.Context) error        { return nil }

func (f *fakeSystemd) IsActive(ctx context.Context, unit string) (systemdctl.State, error) {
	return systemdctl.StateActive, nil
}

func (f *fakeSystemd) restartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.restarts)
}

func TestServiceActionUnmanagedIsRejected(t *testing.T) {
	s := testServer(t)
	reg := registry.New(s.deps.Identity)
	reg.Deployed["remote-thing"] = &registry.DeployedComponent{Runner: "remote", Managed: false}
	s.SetRegistry(reg)

	req := httptest.NewRequest(http.MethodPost, "/services/remote-thing/start", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "remote-thing"})
	w := httptest.NewRecorder()
	s.handleServiceAction("start")(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServiceActionUnknownIDIsNotFound(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/services/nope/start", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "nope"})
	w := httptest.NewRecorder()
	s.handleServiceAction("start")(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServiceActionSelfRestartDefersTheControlCall(t *testing.T) {
	s := testServer(t)
	fake := &fakeSystemd{}
	s.deps.Systemd = fake

	reg := registry.New(s.deps.Identity)
	reg.Deployed[selfComponentID] = &registry.DeployedComponent{Runner: "python", Managed: true}
	s.SetRegistry(reg)

	req := httptest.NewRequest(http.MethodPost, "/services/api/restart", nil)
	req = mux.SetURLVars(req, map[string]string{"id": selfComponentID})
	w := httptest.NewRecorder()

	s.handleServiceAction("restart")(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 0, fake.restartCount(), "Restart must not run synchronously on the request goroutine")

	require.Eventually(t, func() bool { return fake.restartCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestServiceActionWithoutSystemdControllerFails(t *testing.T) {
	s := testServer(t)
	reg := registry.New(s.deps.Identity)
	reg.Deployed["api"] = &registry.DeployedComponent{Runner: "python", Managed: true}
	s.SetRegistry(reg)

	req := httptest.NewRequest(http.MethodPost, "/services/api/start", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "api"})
	w := httptest.NewRecorder()
	s.handleServiceAction("start")(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
