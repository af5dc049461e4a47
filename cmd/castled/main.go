// Command castled runs the castle daemon: the dashboard API, SSE stream,
// health poller and mesh coordinator, all under one process and shutdown
// tree (spec.md §5, SPEC_FULL.md §6).
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/payneio/castle/internal/api"
	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/config"
	"github.com/payneio/castle/internal/eventbus"
	"github.com/payneio/castle/internal/mesh"
	"github.com/payneio/castle/internal/registry"
	"github.com/payneio/castle/internal/secrets"
	"github.com/payneio/castle/internal/systemdctl"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "castled:", err)
		os.Exit(1)
	}
}

// daemon owns the context/cancel pair every background goroutine is
// chained to, the same shape the teacher's Driver keeps for its own
// shutdown signal (systemd/driver.go's ctx/signalShutdown fields).
type daemon struct {
	ctx            context.Context
	signalShutdown context.CancelFunc
	logger         hclog.Logger
}

func run() error {
	var configDir string
	flags := pflag.NewFlagSet("castled", pflag.ContinueOnError)
	flags.StringVar(&configDir, "config-dir", "", "directory holding castle.yaml config overrides")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	logger := hclog.New(&hclog.LoggerOptions{Name: "castled", Level: hclog.Info})

	node, err := config.Load(viper.New(), configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &daemon{ctx: ctx, signalShutdown: cancel, logger: logger}
	defer d.signalShutdown()

	store, err := secrets.New(fmt.Sprintf("%s/secrets", node.CastleHome))
	if err != nil {
		return fmt.Errorf("open secrets store: %w", err)
	}

	identity := registry.NodeIdentity{Hostname: node.Hostname, GatewayPort: node.GatewayPort}

	systemd, err := systemdctl.New(ctx, logger)
	if err != nil {
		logger.Warn("systemd user bus unavailable, service actions will fail", "error", err)
	}
	if systemd != nil {
		defer systemd.Close()
	}

	bus := eventbus.New(logger)
	stateMgr := mesh.NewStateManager()

	var meshClient *mesh.Client
	if node.MQTTBrokerURL != "" {
		meshClient = mesh.NewClient(mesh.Config{
			Hostname:    node.Hostname,
			BrokerURL:   node.MQTTBrokerURL,
			GatewayPort: node.GatewayPort,
		}, stateMgr, func(event string, data map[string]any) {
			logger.Debug("mesh event", "event", event)
		}, logger)
	}

	srv := api.New(api.Deps{
		CatalogPath:  node.CatalogPath,
		RegistryPath: node.RegistryPath,
		BinDir:       filepath.Join(node.CastleHome, "bin"),
		Identity:     identity,
		Secrets:      store,
		Mesh:         stateMgr,
		MeshClient:   meshClient,
		Systemd:      systemd,
		Bus:          bus,
		Logger:       logger,
	})

	reg, err := loadOrCompileRegistry(node, identity, store, logger)
	if err != nil {
		logger.Warn("no compiled registry available at startup", "error", err)
		reg = registry.New(identity)
	}
	srv.SetRegistry(reg)

	if meshClient != nil {
		if err := meshClient.Start(ctx, mesh.Sanitize(reg)); err != nil {
			logger.Warn("mesh mqtt connect failed, continuing without mesh", "error", err)
		} else {
			defer meshClient.Stop()
		}
	}

	var discovery *mesh.Discovery
	if node.MDNSEnabled {
		discovery = mesh.NewDiscovery(node.Hostname, logger)
		if err := discovery.Advertise(node.GatewayPort, apiPort(node.APIListenAddr)); err != nil {
			logger.Warn("mdns advertise failed", "error", err)
		} else {
			defer discovery.Shutdown()
		}
	}

	srv.StartBackgroundLoops(ctx)

	httpServer := &http.Server{Addr: node.APIListenAddr, Handler: srv.Router()}
	go func() {
		logger.Info("listening", "addr", node.APIListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	waitForSignal(ctx)

	logger.Info("shutting down")
	srv.Shutdown()
	d.signalShutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// waitForSignal blocks until SIGINT/SIGTERM, or the parent ctx is itself
// cancelled first.
func waitForSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
}

// apiPort extracts the numeric port from a "host:port" listen address,
// returning 0 (omitted from the mDNS TXT record) if it can't be parsed.
func apiPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// loadOrCompileRegistry prefers a previously-saved registry (fast startup)
// and falls back to compiling the catalog fresh when none exists yet.
func loadOrCompileRegistry(node *config.Node, identity registry.NodeIdentity, store *secrets.Store, logger hclog.Logger) (*registry.NodeRegistry, error) {
	if reg, err := registry.Load(node.RegistryPath); err == nil {
		return reg, nil
	}

	cat, err := catalog.Load(node.CatalogPath)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Compile(cat, identity, store, registry.Options{})
	if err != nil {
		return nil, err
	}
	if err := registry.Save(node.RegistryPath, reg); err != nil {
		logger.Warn("failed to persist compiled registry", "error", err)
	}
	return reg, nil
}
