package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `gateway:
  port: 9000
programs:
  api:
    source: programs/api
    stack: python-fastapi
services:
  api:
    component: api
    run:
      runner: python
      tool: api
    expose:
      http:
        internal:
          port: 9001
        health_path: /health
    proxy:
      caddy:
        path_prefix: /api
    manage:
      systemd: {}
jobs:
  backup:
    run:
      runner: command
      argv:
        - backup
    schedule: 0 2 * * *
`

func TestParseSingleDaemon(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, 9000, c.Gateway.Port)
	require.Contains(t, c.Programs, "api")
	assert.Equal(t, "python-fastapi", c.Programs["api"].Stack)

	svc, ok := c.Services["api"]
	require.True(t, ok)
	assert.Equal(t, RunnerPython, svc.Run.Runner)
	require.NotNil(t, svc.Run.Python)
	assert.Equal(t, "api", svc.Run.Python.Tool)
	require.NotNil(t, svc.Expose)
	require.NotNil(t, svc.Expose.HTTP)
	assert.Equal(t, 9001, svc.Expose.HTTP.Internal.Port)
	assert.Equal(t, "/health", svc.Expose.HTTP.HealthPath)
	require.NotNil(t, svc.Manage)
	require.NotNil(t, svc.Manage.Systemd)

	job, ok := c.Jobs["backup"]
	require.True(t, ok)
	assert.Equal(t, "0 2 * * *", job.Schedule)
	assert.Equal(t, defaultTimezone, job.Timezone)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	out, err := c.Marshal()
	require.NoError(t, err)

	reparsed, err := Parse(out)
	require.NoError(t, err)

	again, err := reparsed.Marshal()
	require.NoError(t, err)

	assert.Equal(t, string(out), string(again))
	// The structurally-significant empty `systemd: {}` mapping must survive.
	assert.Contains(t, string(out), "systemd: {}")
}

func TestDuplicateIDAcrossNamespaces(t *testing.T) {
	_, err := Parse([]byte(`gateway: {port: 9000}
programs:
  shared: {}
services:
  shared:
    run: {runner: command, argv: [x]}
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
	assert.Contains(t, err.Error(), "shared")
}

func TestRemoteForbidsSystemdManage(t *testing.T) {
	_, err := Parse([]byte(`gateway: {port: 9000}
services:
  s:
    run:
      runner: remote
      base_url: http://elsewhere:9000
    manage:
      systemd:
        enable: true
`))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "runner=remote"))
}

func TestRemoteWithEmptyManageIsValid(t *testing.T) {
	_, err := Parse([]byte(`gateway: {port: 9000}
services:
  s:
    run:
      runner: remote
      base_url: http://elsewhere:9000
    manage: {}
`))
	require.NoError(t, err)
}

func TestUnknownRunnerFailsClosed(t *testing.T) {
	_, err := Parse([]byte(`gateway: {port: 9000}
services:
  s:
    run:
      runner: ssh
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedRunner)
}

func TestPortCollisionRejected(t *testing.T) {
	_, err := Parse([]byte(`gateway: {port: 9000}
services:
  a:
    run: {runner: command, argv: [a]}
    expose: {http: {internal: {port: 9001}}}
  b:
    run: {runner: command, argv: [b]}
    expose: {http: {internal: {port: 9001}}}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already reserved")
}

func TestAddProgramRejectsDuplicate(t *testing.T) {
	c := New()
	require.NoError(t, c.AddProgram("api", &Program{}))
	err := c.AddProgram("api", &Program{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
}
