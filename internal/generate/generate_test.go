package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payneio/castle/internal/registry"
)

func TestServiceUnitDefaults(t *testing.T) {
	dc := &registry.DeployedComponent{
		Description: "api",
		RunCmd:      []string{"/usr/bin/api", "--port", "9001"},
		Managed:     true,
	}
	out, err := ServiceUnit("api", dc, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Description=Castle: api")
	assert.Contains(t, out, "Type=simple")
	assert.Contains(t, out, "ExecStart=/usr/bin/api --port 9001")
	assert.Contains(t, out, "Restart=on-failure")
	assert.Contains(t, out, "WantedBy=default.target")
	assert.NotContains(t, out, "WorkingDirectory")
}

func TestServiceUnitScheduledIsOneshotWithNoRestart(t *testing.T) {
	dc := &registry.DeployedComponent{
		RunCmd:   []string{"backup"},
		Schedule: "0 2 * * *",
		Managed:  true,
	}
	out, err := ServiceUnit("backup", dc, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Type=oneshot")
	assert.NotContains(t, out, "Restart=")
}

func TestCronToCalendarDailyAt(t *testing.T) {
	cal, interval := cronToCalendar("0 2 * * *")
	assert.Equal(t, "*-*-* 02:00:00", cal)
	assert.Zero(t, interval)
}

func TestCronToCalendarEveryNMinutes(t *testing.T) {
	cal, interval := cronToCalendar("*/15 * * * *")
	assert.Empty(t, cal)
	assert.Equal(t, 900, interval)
}

func TestCronToCalendarFallback(t *testing.T) {
	cal, interval := cronToCalendar("0 0 1 1 *")
	assert.Empty(t, cal)
	assert.Equal(t, 300, interval)
}

func TestTimerUnitUsesOnCalendar(t *testing.T) {
	dc := &registry.DeployedComponent{Description: "nightly backup", Schedule: "0 2 * * *"}
	out, err := TimerUnit("backup", dc)
	require.NoError(t, err)
	assert.Contains(t, out, "OnCalendar=*-*-* 02:00:00")
	assert.NotContains(t, out, "OnUnitActiveSec")
}

func TestCaddyfileLocalRoutesPrecedeRemote(t *testing.T) {
	reg := &registry.NodeRegistry{
		Deployed: map[string]*registry.DeployedComponent{
			"svc": {ProxyPath: "/svc", Port: 9001},
		},
	}
	out, err := Caddyfile(9000, reg, []RemoteRoute{
		{ProxyPath: "/svc", Hostname: "hostb", Port: 9010},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "handle_path /svc/*")
	assert.Contains(t, out, "reverse_proxy localhost:9001")
	assert.NotContains(t, out, "hostb")
}

func TestCaddyfileIncludesDistinctRemoteRoute(t *testing.T) {
	reg := &registry.NodeRegistry{Deployed: map[string]*registry.DeployedComponent{}}
	out, err := Caddyfile(9000, reg, []RemoteRoute{
		{ProxyPath: "/other", Hostname: "hostb", Port: 9010},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "handle_path /other/*")
	assert.Contains(t, out, "reverse_proxy hostb:9010")
}
