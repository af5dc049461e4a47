package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	n, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 9000, n.GatewayPort)
	assert.Equal(t, "tcp://localhost:1883", n.MQTTBrokerURL)
	assert.True(t, n.MDNSEnabled)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "castle.yaml"), []byte("gateway_port: 9100\nmdns_enabled: false\n"), 0o644))

	n, err := Load(viper.New(), dir)
	require.NoError(t, err)
	assert.Equal(t, 9100, n.GatewayPort)
	assert.False(t, n.MDNSEnabled)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("CASTLE_GATEWAY_PORT", "9200")
	n, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 9200, n.GatewayPort)
}
