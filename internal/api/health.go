package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/payneio/castle/internal/registry"
)

// HealthState is the up/down vocabulary the poller assigns.
type HealthState string

const (
	HealthUp   HealthState = "up"
	HealthDown HealthState = "down"
)

// HealthStatus is one component's most recent health check result.
type HealthStatus struct {
	ID     string      `json:"id"`
	Status HealthState `json:"status"`
}

const (
	healthPollInterval = 10 * time.Second
	healthCheckTimeout = 3 * time.Second
)

// pollOnce checks every DeployedComponent with a port and health_path and
// returns the resulting statuses in registry iteration order is not
// guaranteed; callers sort if determinism matters.
func (s *Server) pollOnce(ctx context.Context) []HealthStatus {
	reg := s.registrySnapshot()
	client := &http.Client{Timeout: healthCheckTimeout}

	var statuses []HealthStatus
	for id, dc := range reg.Deployed {
		if dc.Port == 0 || dc.HealthPath == "" {
			continue
		}
		statuses = append(statuses, HealthStatus{ID: id, Status: probeOne(ctx, client, dc)})
	}
	return statuses
}

func probeOne(ctx context.Context, client *http.Client, dc *registry.DeployedComponent) HealthState {
	url := fmt.Sprintf("http://127.0.0.1:%d%s", dc.Port, dc.HealthPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthDown
	}
	resp, err := client.Do(req)
	if err != nil {
		return HealthDown
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return HealthUp
	}
	return HealthDown
}

// healthPollLoop runs until ctx is cancelled, broadcasting a `health` SSE
// frame every healthPollInterval (spec.md §4.5).
func (s *Server) healthPollLoop(ctx context.Context) {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			statuses := s.pollOnce(ctx)
			s.hub.broadcast("health", map[string]any{
				"statuses":  statuses,
				"timestamp": time.Now().Unix(),
			})
		}
	}
}

// broadcastHealthWithOverride re-polls health but substitutes overrideID's
// status with the systemd truth the caller just observed, ahead of the
// next scheduled poll (spec.md §4.5, §8 scenario 6).
func (s *Server) broadcastHealthWithOverride(ctx context.Context, overrideID string, overrideUp bool) {
	statuses := s.pollOnce(ctx)
	found := false
	for i := range statuses {
		if statuses[i].ID == overrideID {
			if overrideUp {
				statuses[i].Status = HealthUp
			} else {
				statuses[i].Status = HealthDown
			}
			found = true
		}
	}
	if !found {
		state := HealthDown
		if overrideUp {
			state = HealthUp
		}
		statuses = append(statuses, HealthStatus{ID: overrideID, Status: state})
	}
	s.hub.broadcast("health", map[string]any{
		"statuses":  statuses,
		"timestamp": time.Now().Unix(),
	})
}
