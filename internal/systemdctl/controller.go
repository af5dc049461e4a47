// Package systemdctl drives the systemd user instance over D-Bus
// (github.com/coreos/go-systemd/v22/dbus), the same connection style the
// teacher used for its machine1/import1 control plane. journalctl is the
// one operation dbus has no equivalent for and is still shelled out to —
// see tail.go.
package systemdctl

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
	hclog "github.com/hashicorp/go-hclog"
)

// Controller owns the user-session D-Bus connection used to reconcile
// generated units with the running systemd user instance.
type Controller struct {
	conn   *dbus.Conn
	logger hclog.Logger
}

// New dials the systemd user bus. The caller owns the returned
// Controller's lifetime and must call Close.
func New(ctx context.Context, logger hclog.Logger) (*Controller, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("systemdctl")

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd user bus: %w", err)
	}
	return &Controller{conn: conn, logger: logger}, nil
}

// Close releases the D-Bus connection.
func (c *Controller) Close() {
	c.conn.Close()
}

// DaemonReload reloads unit files from disk, required after WriteAll
// changes anything (spec.md §4.3: "followed by a daemon-reload command").
func (c *Controller) DaemonReload(ctx context.Context) error {
	if err := c.conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}

// Enable enables unit for start-on-boot, matching `systemctl --user enable`.
func (c *Controller) Enable(ctx context.Context, unit string) error {
	_, _, err := c.conn.EnableUnitFilesContext(ctx, []string{unit}, false, true)
	if err != nil {
		return fmt.Errorf("enable %s: %w", unit, err)
	}
	return nil
}

// Disable is the inverse of Enable.
func (c *Controller) Disable(ctx context.Context, unit string) error {
	_, err := c.conn.DisableUnitFilesContext(ctx, []string{unit}, false)
	if err != nil {
		return fmt.Errorf("disable %s: %w", unit, err)
	}
	return nil
}

// jobWait blocks until the job queued by a Start/Stop/Restart/Reload call
// completes, surfacing anything other than "done" as an error.
func jobWait(ch chan string, unit, verb string) error {
	result := <-ch
	if result != "done" {
		return fmt.Errorf("%s %s: job result %q", verb, unit, result)
	}
	return nil
}

// Start invokes the dbus equivalent of `systemctl --user start <unit>`.
func (c *Controller) Start(ctx context.Context, unit string) error {
	ch := make(chan string, 1)
	if _, err := c.conn.StartUnitContext(ctx, unit, "replace", ch); err != nil {
		return fmt.Errorf("start %s: %w", unit, err)
	}
	return jobWait(ch, unit, "start")
}

// Stop invokes the dbus equivalent of `systemctl --user stop <unit>`.
func (c *Controller) Stop(ctx context.Context, unit string) error {
	ch := make(chan string, 1)
	if _, err := c.conn.StopUnitContext(ctx, unit, "replace", ch); err != nil {
		return fmt.Errorf("stop %s: %w", unit, err)
	}
	return jobWait(ch, unit, "stop")
}

// Restart invokes the dbus equivalent of `systemctl --user restart <unit>`.
func (c *Controller) Restart(ctx context.Context, unit string) error {
	ch := make(chan string, 1)
	if _, err := c.conn.RestartUnitContext(ctx, unit, "replace", ch); err != nil {
		return fmt.Errorf("restart %s: %w", unit, err)
	}
	return jobWait(ch, unit, "restart")
}

// Reload invokes the dbus equivalent of `systemctl --user reload <unit>`.
func (c *Controller) Reload(ctx context.Context, unit string) error {
	ch := make(chan string, 1)
	if _, err := c.conn.ReloadUnitContext(ctx, unit, "replace", ch); err != nil {
		return fmt.Errorf("reload %s: %w", unit, err)
	}
	return jobWait(ch, unit, "reload")
}

// State is the systemd ActiveState vocabulary spec.md §4.5's state machine
// enumerates.
type State string

const (
	StateUnknown     State = "unknown"
	StateActive      State = "active"
	StateInactive    State = "inactive"
	StateFailed      State = "failed"
	StateActivating  State = "activating"
	StateDeactivating State = "deactivating"
)

// IsActive is the dbus equivalent of `systemctl --user is-active <unit>`:
// the source of truth for a unit's state immediately after an action,
// ahead of the next health poll (spec.md §4.5).
func (c *Controller) IsActive(ctx context.Context, unit string) (State, error) {
	prop, err := c.conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return StateUnknown, fmt.Errorf("is-active %s: %w", unit, err)
	}
	val, ok := prop.Value.Value().(string)
	if !ok {
		return StateUnknown, nil
	}
	switch val {
	case "active":
		return StateActive, nil
	case "inactive":
		return StateInactive, nil
	case "failed":
		return StateFailed, nil
	case "activating":
		return StateActivating, nil
	case "deactivating":
		return StateDeactivating, nil
	default:
		return StateUnknown, nil
	}
}
