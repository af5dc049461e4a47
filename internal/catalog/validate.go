package catalog

import (
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"
)

var idRe = regexp.MustCompile(`^[a-z0-9][a-z0-9\-_.]{1,63}$`)

// ValidID reports whether id matches the catalog id pattern (spec.md §3).
func ValidID(id string) bool {
	return idRe.MatchString(id)
}

// cronParser validates the five-field cron expressions used by jobs. Only
// validation (not scheduling) uses this parser; the systemd OnCalendar
// conversion in internal/generate is a separate, hand-rolled subset per
// spec.md §4.3.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks id syntax, cross-namespace id collisions, port
// reservations, and the runner=remote/systemd.enable conflict. A service or
// job may reuse the id of the program it names as its component; any other
// shared id is a collision. It returns a *ValidationError wrapping
// ErrInvalidCatalog; when a collision is among the failures the returned
// error also matches ErrDuplicateID.
func (c *Catalog) Validate() error {
	verrs := &ValidationError{}

	seen := make(map[string]string, len(c.Programs)+len(c.Services)+len(c.Jobs))
	collision := false
	checkID := func(namespace, id, component string) {
		if !ValidID(id) {
			verrs.add(namespace+"."+id, "id %q does not match %s", id, idPatternDoc)
		}
		if existing, ok := seen[id]; ok && existing != namespace && !(existing == "programs" && component == id) {
			verrs.add(namespace+"."+id, "id %q already used by %s", id, existing)
			collision = true
		}
		seen[id] = namespace
	}

	for id := range c.Programs {
		checkID("programs", id, "")
	}
	for id, s := range c.Services {
		checkID("services", id, s.Component)
	}
	for id, j := range c.Jobs {
		checkID("jobs", id, j.Component)
	}

	ports := map[int]string{}
	if c.Gateway.Port != 0 {
		ports[c.Gateway.Port] = "gateway"
	}
	for id, s := range c.Services {
		path := "services." + id
		if s.Run.Runner == "" {
			verrs.add(path+".run.runner", "runner is required")
		} else if s.Run.Command == nil && s.Run.Python == nil && s.Run.Container == nil &&
			s.Run.Node == nil && s.Run.Remote == nil {
			verrs.add(path+".run", "%v: %s", ErrUnsupportedRunner, s.Run.Runner)
		}

		if s.Run.Runner == RunnerRemote && s.Manage != nil && s.Manage.Systemd != nil && s.Manage.Systemd.EnabledOrDefault() {
			verrs.add(path+".manage.systemd.enable", "cannot be enabled for runner=remote")
		}

		if s.Expose != nil && s.Expose.HTTP != nil {
			port := s.Expose.HTTP.Internal.Port
			if port != 0 {
				if owner, ok := ports[port]; ok {
					verrs.add(path+".expose.http.internal.port", "port %d already reserved by %s", port, owner)
				}
				ports[port] = path
			}
		}
	}

	for id, j := range c.Jobs {
		path := "jobs." + id
		if j.Run.Runner == "" {
			verrs.add(path+".run.runner", "runner is required")
		} else if j.Run.Command == nil && j.Run.Python == nil && j.Run.Container == nil &&
			j.Run.Node == nil && j.Run.Remote == nil {
			verrs.add(path+".run", "%v: %s", ErrUnsupportedRunner, j.Run.Runner)
		}
		if j.Schedule == "" {
			verrs.add(path+".schedule", "schedule is required")
		} else if _, err := cronParser.Parse(j.Schedule); err != nil {
			verrs.add(path+".schedule", "invalid cron expression %q: %s", j.Schedule, err)
		}
	}

	err := verrs.asError()
	if err != nil && collision {
		return fmt.Errorf("%w: %w", ErrDuplicateID, err)
	}
	return err
}
