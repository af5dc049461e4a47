package generate

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/registry"
)

// UnitsDir is the systemd user unit directory spec.md §6 names.
func UnitsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "systemd", "user"), nil
}

// GeneratedDir is ~/.castle/generated, home to the rendered Caddyfile.
func GeneratedDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".castle", "generated"), nil
}

// WriteAll renders every managed unit/timer plus the gateway config and
// writes whichever changed. It returns the paths actually written — callers
// use a non-empty result to decide whether a daemon-reload is warranted
// (spec.md §4.3: "write only on change is permitted; not required").
func WriteAll(reg *registry.NodeRegistry, cat *catalog.Catalog, remoteRoutes []RemoteRoute) ([]string, error) {
	unitsDir, err := UnitsDir()
	if err != nil {
		return nil, err
	}
	genDir, err := GeneratedDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(unitsDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", unitsDir, err)
	}
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", genDir, err)
	}

	var changed []string

	for id, dc := range reg.Deployed {
		if !dc.Managed {
			continue
		}
		sys := systemdSidebandFor(id, cat)

		unitText, err := ServiceUnit(id, dc, sys)
		if err != nil {
			return changed, err
		}
		unitPath := filepath.Join(unitsDir, dc.UnitName(id))
		wrote, err := writeIfChanged(unitPath, unitText)
		if err != nil {
			return changed, err
		}
		if wrote {
			changed = append(changed, unitPath)
		}

		if dc.Schedule != "" {
			timerText, err := TimerUnit(id, dc)
			if err != nil {
				return changed, err
			}
			timerPath := filepath.Join(unitsDir, dc.TimerName(id))
			wrote, err := writeIfChanged(timerPath, timerText)
			if err != nil {
				return changed, err
			}
			if wrote {
				changed = append(changed, timerPath)
			}
		}
	}

	caddyText, err := Caddyfile(cat.Gateway.Port, reg, remoteRoutes)
	if err != nil {
		return changed, err
	}
	caddyPath := filepath.Join(genDir, "Caddyfile")
	wrote, err := writeIfChanged(caddyPath, caddyText)
	if err != nil {
		return changed, err
	}
	if wrote {
		changed = append(changed, caddyPath)
	}

	return changed, nil
}

func systemdSidebandFor(id string, cat *catalog.Catalog) *catalog.SystemdSpec {
	if s, ok := cat.Services[id]; ok && s.Manage != nil {
		return s.Manage.Systemd
	}
	if j, ok := cat.Jobs[id]; ok && j.Manage != nil {
		return j.Manage.Systemd
	}
	return nil
}

func writeIfChanged(path, content string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && sha256Sum(existing) == sha256Sum([]byte(content)) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func sha256Sum(b []byte) [32]byte {
	return sha256.Sum256(b)
}
