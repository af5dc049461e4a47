package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/secrets"
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
    defaults:
      env:
        API_TOKEN: ${secret:api_token}
        MISSING: ${secret:does_not_exist}
jobs:
  backup:
    run:
      runner: command
      argv:
        - backup
    schedule: 0 2 * * *
`

func testIdentity() NodeIdentity {
	return NodeIdentity{Hostname: "devbox", GatewayPort: 9000}
}

func TestCompileSingleDaemon(t *testing.T) {
	cat, err := catalog.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := secrets.New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("api_token", "s3cr3t"))

	reg, err := Compile(cat, testIdentity(), store, Options{Component: "api"})
	require.NoError(t, err)

	dc, ok := reg.Deployed["api"]
	require.True(t, ok)
	assert.Equal(t, BehaviorDaemon, dc.Behavior)
	assert.Equal(t, "python-fastapi", dc.Stack)
	assert.Equal(t, 9001, dc.Port)
	assert.Equal(t, "/health", dc.HealthPath)
	assert.True(t, dc.Managed)
	assert.Equal(t, "s3cr3t", dc.Env["API_TOKEN"])
	assert.Equal(t, "<MISSING_SECRET:does_not_exist>", dc.Env["MISSING"])
	assert.Equal(t, "9001", dc.Env["API_PORT"])
	require.Len(t, dc.RunCmd, 1)
	assert.Equal(t, "api", dc.RunCmd[0])
}

func TestCompileNightlyJob(t *testing.T) {
	cat, err := catalog.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	store, err := secrets.New(t.TempDir())
	require.NoError(t, err)

	reg, err := Compile(cat, testIdentity(), store, Options{Component: "backup"})
	require.NoError(t, err)

	dc, ok := reg.Deployed["backup"]
	require.True(t, ok)
	assert.Equal(t, BehaviorTool, dc.Behavior)
	assert.Equal(t, "0 2 * * *", dc.Schedule)
	assert.True(t, dc.Managed)
	assert.Equal(t, []string{"backup"}, dc.RunCmd)
}

func TestCompileUnknownComponentReturnsNotFound(t *testing.T) {
	cat, err := catalog.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	store, err := secrets.New(t.TempDir())
	require.NoError(t, err)

	_, err = Compile(cat, testIdentity(), store, Options{Component: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompileRemoteServiceIsUnmanaged(t *testing.T) {
	cat, err := catalog.Parse([]byte(`gateway: {port: 9000}
services:
  remote-svc:
    run:
      runner: remote
      base_url: http://otherhost:9000
`))
	require.NoError(t, err)

	store, err := secrets.New(t.TempDir())
	require.NoError(t, err)

	reg, err := Compile(cat, testIdentity(), store, Options{Component: "remote-svc"})
	require.NoError(t, err)

	dc := reg.Deployed["remote-svc"]
	assert.False(t, dc.Managed)
	assert.Nil(t, dc.RunCmd)
}

func TestCompileWholeCatalog(t *testing.T) {
	cat, err := catalog.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	store, err := secrets.New(t.TempDir())
	require.NoError(t, err)

	reg, err := Compile(cat, testIdentity(), store, Options{})
	require.NoError(t, err)
	assert.Len(t, reg.Deployed, 2)
}

func TestCompileScopedPreservesOtherDeployedComponents(t *testing.T) {
	cat, err := catalog.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	store, err := secrets.New(t.TempDir())
	require.NoError(t, err)

	full, err := Compile(cat, testIdentity(), store, Options{})
	require.NoError(t, err)
	require.Len(t, full.Deployed, 2)

	scoped, err := Compile(cat, testIdentity(), store, Options{Component: "api", Existing: full})
	require.NoError(t, err)

	assert.Len(t, scoped.Deployed, 2)
	_, stillThere := scoped.Deployed["backup"]
	assert.True(t, stillThere, "scoped compile must not drop components outside its target")
	assert.Equal(t, "python-fastapi", scoped.Deployed["api"].Stack)
}

func TestRegistrySaveLoadRoundTrip(t *testing.T) {
	cat, err := catalog.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	store, err := secrets.New(t.TempDir())
	require.NoError(t, err)

	reg, err := Compile(cat, testIdentity(), store, Options{})
	require.NoError(t, err)

	path := t.TempDir() + "/registry.yaml"
	require.NoError(t, Save(path, reg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Node, reloaded.Node)
	assert.Len(t, reloaded.Deployed, len(reg.Deployed))
}
