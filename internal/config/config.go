// Package config loads per-node daemon settings: the MQTT broker, mDNS
// toggle, gateway port override, and the castle home directory the rest
// of the module roots its state under (spec.md §2 "Configuration").
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Node is the resolved configuration for one castled process.
type Node struct {
	Hostname      string
	CastleHome    string
	CatalogPath   string
	RegistryPath  string
	GatewayPort   int
	MQTTBrokerURL string
	MDNSEnabled   bool
	APIListenAddr string
}

const (
	keyHostname      = "hostname"
	keyCastleHome    = "castle_home"
	keyCatalogPath   = "catalog_path"
	keyGatewayPort   = "gateway_port"
	keyMQTTBroker    = "mqtt_broker_url"
	keyMDNSEnabled   = "mdns_enabled"
	keyAPIListenAddr = "api_listen_addr"
)

// Load reads node configuration from (in ascending priority) defaults,
// a castle.toml/yaml/json file under configDir (if configDir is non-empty),
// CASTLE_-prefixed environment variables, and the values already bound to
// v by a CLI layer via BindPFlag. Passing a nil *viper.Viper builds a
// fresh one bound to the process environment only.
func Load(v *viper.Viper, configDir string) (*Node, error) {
	if v == nil {
		v = viper.New()
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	castleHome := filepath.Join(home, ".castle")

	v.SetDefault(keyHostname, hostname)
	v.SetDefault(keyCastleHome, castleHome)
	v.SetDefault(keyCatalogPath, filepath.Join(castleHome, "castle.yaml"))
	v.SetDefault(keyGatewayPort, 9000)
	v.SetDefault(keyMQTTBroker, "tcp://localhost:1883")
	v.SetDefault(keyMDNSEnabled, true)
	v.SetDefault(keyAPIListenAddr, "127.0.0.1:8900")

	v.SetEnvPrefix("castle")
	v.AutomaticEnv()

	if configDir != "" {
		v.SetConfigName("castle")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config in %s: %w", configDir, err)
			}
		}
	}

	n := &Node{
		Hostname:      v.GetString(keyHostname),
		CastleHome:    v.GetString(keyCastleHome),
		CatalogPath:   v.GetString(keyCatalogPath),
		GatewayPort:   v.GetInt(keyGatewayPort),
		MQTTBrokerURL: v.GetString(keyMQTTBroker),
		MDNSEnabled:   v.GetBool(keyMDNSEnabled),
		APIListenAddr: v.GetString(keyAPIListenAddr),
	}
	n.RegistryPath = filepath.Join(n.CastleHome, "registry.yaml")
	return n, nil
}
