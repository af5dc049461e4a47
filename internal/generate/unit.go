package generate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/registry"
)

// unitView is the flattened template input for a systemd service unit. No
// field is a source-tree path — see the package doc.
type unitView struct {
	Description     string
	After           string
	Type            string
	ExecStart       string
	Env             map[string]string
	Scheduled       bool
	Restart         string
	RestartSec      int
	ExecReload      string
	NoNewPrivileges bool
	WantedBy        string
}

// ServiceUnit renders the systemd unit file for id. sys carries the
// sideband manage.systemd options spec.md requires but the registry
// doesn't store (After, WantedBy, Restart, ...); it may be nil.
func ServiceUnit(id string, dc *registry.DeployedComponent, sys *catalog.SystemdSpec) (string, error) {
	if dc == nil {
		return "", fmt.Errorf("generate: nil component for %s", id)
	}

	desc := dc.Description
	if desc == "" {
		desc = id
	}

	v := unitView{
		Description: desc,
		After:       "network.target",
		Type:        "simple",
		ExecStart:   strings.Join(dc.RunCmd, " "),
		Env:         dc.Env,
		Scheduled:   dc.Schedule != "",
		Restart:     string(catalog.RestartOnFailure),
		RestartSec:  5,
		WantedBy:    "default.target",
	}
	if dc.Schedule != "" {
		v.Type = "oneshot"
	}

	if sys != nil {
		if len(sys.After) > 0 {
			v.After = strings.Join(sys.After, " ")
		}
		if len(sys.WantedBy) > 0 {
			v.WantedBy = strings.Join(sys.WantedBy, " ")
		}
		if sys.Restart != "" {
			v.Restart = string(sys.Restart)
		}
		if sys.RestartSec != 0 {
			v.RestartSec = sys.RestartSec
		}
		v.ExecReload = sys.ExecReload
		v.NoNewPrivileges = sys.NoNewPrivileges
	}

	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render unit %s: %w", id, err)
	}
	return buf.String(), nil
}
