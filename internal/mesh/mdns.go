package mesh

import (
	"fmt"
	"sync"

	"github.com/hashicorp/mdns"
	hclog "github.com/hashicorp/go-hclog"
)

const (
	castleServiceType = "_castle._tcp"
	mqttServiceType   = "_mqtt._tcp"
)

// Peer is a discovered castle node's connection info.
type Peer struct {
	Hostname    string
	GatewayPort int
	APIPort     int
	Addresses   []string
}

// Broker is a discovered MQTT broker's connection info.
type Broker struct {
	Host string
	Port int
}

// Discovery advertises this node via mDNS and browses for peers and a
// broker. It is strictly advisory — spec.md §4.4: "it never injects
// registries; those only arrive via the broker."
type Discovery struct {
	hostname string
	server   *mdns.Server
	logger   hclog.Logger

	mu     sync.RWMutex
	peers  map[string]Peer
	broker *Broker
}

// NewDiscovery constructs a Discovery for hostname, not yet advertising.
func NewDiscovery(hostname string, logger hclog.Logger) *Discovery {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Discovery{
		hostname: hostname,
		logger:   logger.Named("mesh.mdns"),
		peers:    map[string]Peer{},
	}
}

// Advertise registers this node as _castle._tcp.local. on gatewayPort with
// TXT {hostname, gateway_port, api_port}.
func (d *Discovery) Advertise(gatewayPort, apiPort int) error {
	info := []string{
		"hostname=" + d.hostname,
		fmt.Sprintf("gateway_port=%d", gatewayPort),
		fmt.Sprintf("api_port=%d", apiPort),
	}
	service, err := mdns.NewMDNSService(d.hostname, castleServiceType, "", "", gatewayPort, nil, info)
	if err != nil {
		return fmt.Errorf("build mdns service record: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("start mdns server: %w", err)
	}
	d.server = server
	return nil
}

// Shutdown stops advertising.
func (d *Discovery) Shutdown() error {
	if d.server == nil {
		return nil
	}
	return d.server.Shutdown()
}

// BrowseCastlePeers runs one mDNS lookup for _castle._tcp.local. and
// merges discovered peers (other than this node) into Peers().
func (d *Discovery) BrowseCastlePeers() error {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			d.handleCastleEntry(e)
		}
	}()

	err := mdns.Lookup(castleServiceType, entries)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("browse %s: %w", castleServiceType, err)
	}
	return nil
}

func (d *Discovery) handleCastleEntry(e *mdns.ServiceEntry) {
	fields := map[string]string{}
	for _, f := range e.InfoFields {
		for i := 0; i < len(f); i++ {
			if f[i] == '=' {
				fields[f[:i]] = f[i+1:]
				break
			}
		}
	}
	hostname := fields["hostname"]
	if hostname == "" || hostname == d.hostname {
		return
	}

	var addrs []string
	if e.AddrV4 != nil {
		addrs = append(addrs, e.AddrV4.String())
	}
	if e.AddrV6 != nil {
		addrs = append(addrs, e.AddrV6.String())
	}

	peer := Peer{Hostname: hostname, Addresses: addrs}
	fmt.Sscanf(fields["gateway_port"], "%d", &peer.GatewayPort)
	fmt.Sscanf(fields["api_port"], "%d", &peer.APIPort)

	d.mu.Lock()
	d.peers[hostname] = peer
	d.mu.Unlock()
	d.logger.Info("discovered peer", "hostname", hostname, "addresses", addrs)
}

// BrowseBroker runs one mDNS lookup for _mqtt._tcp.local. and records the
// first responder as the discovered broker.
func (d *Discovery) BrowseBroker() error {
	entries := make(chan *mdns.ServiceEntry, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil {
				continue
			}
			d.mu.Lock()
			d.broker = &Broker{Host: e.AddrV4.String(), Port: e.Port}
			d.mu.Unlock()
			d.logger.Info("discovered mqtt broker", "host", e.AddrV4.String(), "port", e.Port)
		}
	}()

	err := mdns.Lookup(mqttServiceType, entries)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("browse %s: %w", mqttServiceType, err)
	}
	return nil
}

// Peers returns a snapshot of discovered castle peers.
func (d *Discovery) Peers() map[string]Peer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]Peer, len(d.peers))
	for k, v := range d.peers {
		out[k] = v
	}
	return out
}

// BrokerAddr returns the discovered MQTT broker, or nil if none has been
// found yet.
func (d *Discovery) BrokerAddr() *Broker {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.broker
}
