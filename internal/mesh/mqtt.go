package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	hclog "github.com/hashicorp/go-hclog"
)

// EventFunc receives each membership change the MQTT client observes;
// castled's callback logs it and does not forward it to the SSE stream.
// It must not block: it runs on paho's callback goroutine.
type EventFunc func(event string, data map[string]any)

// Client wraps paho for castle's retained-topic membership protocol
// (spec.md §4.4). The broker connection and its network loop run on a
// background goroutine owned by the paho library; Start waits (up to 10s)
// for the connection and each publish waits for its acknowledgement.
type Client struct {
	hostname        string
	client          mqtt.Client
	state           *StateManager
	onEvent         EventFunc
	logger          hclog.Logger
	pendingRegistry *SanitizedRegistry
}

// Config is the broker dial information for Client.
type Config struct {
	Hostname    string
	BrokerURL   string // e.g. "tcp://localhost:1883"
	GatewayPort int
}

// NewClient constructs a disconnected Client. Call Start to dial the
// broker and begin publishing/subscribing.
func NewClient(cfg Config, state *StateManager, onEvent EventFunc, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("mesh.mqtt")

	c := &Client{hostname: cfg.Hostname, state: state, onEvent: onEvent, logger: logger}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID("castle-" + cfg.Hostname).
		SetCleanSession(true).
		SetWill(statusTopic(cfg.Hostname), "offline", 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetAutoReconnect(true)

	c.client = mqtt.NewClient(opts)
	return c
}

func statusTopic(hostname string) string   { return fmt.Sprintf("castle/%s/status", hostname) }
func registryTopic(hostname string) string { return fmt.Sprintf("castle/%s/registry", hostname) }

// Start connects to the broker. The on-connect handler publishes
// status=online then the retained registry, and subscribes to every
// peer's topics (spec.md §4.4 "Publish policy").
func (c *Client) Start(ctx context.Context, reg *SanitizedRegistry) error {
	c.pendingRegistry = reg
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("connected to broker")

	if token := client.Publish(statusTopic(c.hostname), 1, true, "online"); token.Wait() && token.Error() != nil {
		c.logger.Error("publish online status failed", "error", token.Error())
	}

	if c.pendingRegistry != nil {
		if err := c.publishRegistryLocked(c.pendingRegistry); err != nil {
			c.logger.Error("publish registry failed", "error", err)
		}
	}

	client.Subscribe("castle/+/registry", 1, c.onMessage)
	client.Subscribe("castle/+/status", 1, c.onMessage)
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Warn("disconnected from broker", "error", err)
}

// PublishRegistry re-publishes the local registry, e.g. after a recompile
// (spec.md §4.4: "on registry change locally, re-publish").
func (c *Client) PublishRegistry(reg *SanitizedRegistry) error {
	c.pendingRegistry = reg
	return c.publishRegistryLocked(reg)
}

func (c *Client) publishRegistryLocked(reg *SanitizedRegistry) error {
	body, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	token := c.client.Publish(registryTopic(c.hostname), 1, true, body)
	token.Wait()
	return token.Error()
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	hostname, kind, ok := parseTopic(msg.Topic())
	if !ok || hostname == c.hostname {
		return
	}

	switch kind {
	case "registry":
		var reg SanitizedRegistry
		if err := json.Unmarshal(msg.Payload(), &reg); err != nil {
			c.logger.Error("malformed registry payload", "hostname", hostname, "error", err)
			return
		}
		c.state.UpdateNode(hostname, &reg)
		c.emit("node_updated", hostname)

	case "status":
		if string(msg.Payload()) == "offline" {
			c.state.SetOffline(hostname)
			c.emit("node_offline", hostname)
		}
	}
}

func (c *Client) emit(event, hostname string) {
	if c.onEvent == nil {
		return
	}
	c.onEvent("mesh", map[string]any{"event": event, "hostname": hostname})
}

func parseTopic(topic string) (hostname, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "castle" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// Stop publishes status=offline then disconnects, matching spec.md §4.4's
// graceful-shutdown clause; the LWT only covers unexpected drops.
func (c *Client) Stop() {
	token := c.client.Publish(statusTopic(c.hostname), 1, true, "offline")
	token.WaitTimeout(2 * time.Second)
	c.client.Disconnect(250)
}
