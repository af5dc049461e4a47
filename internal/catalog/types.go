// Package catalog parses, validates, and persists the declarative castle.yaml
// catalog: programs (software identities), services (daemons) and jobs
// (scheduled tasks).
package catalog

import "fmt"

// RunnerKind discriminates the run spec of a service or job.
type RunnerKind string

const (
	RunnerCommand   RunnerKind = "command"
	RunnerPython    RunnerKind = "python"
	RunnerContainer RunnerKind = "container"
	RunnerNode      RunnerKind = "node"
	RunnerRemote    RunnerKind = "remote"
)

// RestartPolicy mirrors systemd's Restart= values.
type RestartPolicy string

const (
	RestartNo        RestartPolicy = "no"
	RestartOnFailure RestartPolicy = "on-failure"
	RestartAlways    RestartPolicy = "always"
)

// TLSMode selects how a publicly exposed hostname terminates TLS.
type TLSMode string

const (
	TLSOff         TLSMode = "off"
	TLSInternal    TLSMode = "internal"
	TLSLetsEncrypt TLSMode = "letsencrypt"
)

// idPattern is documented, not compiled here — see ValidID in validate.go.
const idPatternDoc = `^[a-z0-9][a-z0-9\-_.]{1,63}$`

// Program is a catalog entry naming software that exists on disk. It does
// not, by itself, describe a running process.
type Program struct {
	ID          string       `yaml:"-"`
	Description string       `yaml:"description,omitempty"`
	Source      string       `yaml:"source,omitempty"`
	Stack       string       `yaml:"stack,omitempty"`
	Install     *InstallSpec `yaml:"install,omitempty"`
	Tool        *ToolSpec    `yaml:"tool,omitempty"`
	Build       *BuildSpec   `yaml:"build,omitempty"`
	Tags        []string     `yaml:"tags,omitempty"`

	// Type is a deprecated alias for Stack, accepted on load only. See
	// SPEC_FULL.md §4, C1.
	Type string `yaml:"type,omitempty"`
}

// resolveStackAlias folds the deprecated `type` field into `stack` when the
// catalog author used the older name.
func (p *Program) resolveStackAlias() {
	if p.Stack == "" && p.Type != "" {
		p.Stack = p.Type
	}
	p.Type = ""
}

// InstallSpec describes how a program is installed onto the user's PATH.
type InstallSpec struct {
	Path *PathInstallSpec `yaml:"path,omitempty"`
}

// PathInstallSpec is the structurally-significant leaf of InstallSpec.
type PathInstallSpec struct {
	Enable bool   `yaml:"enable"`
	Alias  string `yaml:"alias,omitempty"`
	Shim   bool   `yaml:"shim"`
}

// ToolSpec carries metadata about a program installed as a PATH tool.
type ToolSpec struct {
	Version             string   `yaml:"version,omitempty"`
	SystemDependencies  []string `yaml:"system_dependencies,omitempty"`
}

// BuildSpec describes how to build a program's static outputs.
type BuildSpec struct {
	Commands [][]string `yaml:"commands,omitempty"`
	Outputs  []string   `yaml:"outputs,omitempty"`
}

// DefaultsSpec carries user-supplied environment overrides.
type DefaultsSpec struct {
	Env map[string]string `yaml:"env,omitempty"`
}

// HttpInternal is where a service's HTTP endpoint actually listens.
type HttpInternal struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port"`
}

// HttpPublic is how a service's HTTP endpoint is published externally.
type HttpPublic struct {
	Hostnames  []string `yaml:"hostnames"`
	PathPrefix string   `yaml:"path_prefix,omitempty"`
	TLS        TLSMode  `yaml:"tls,omitempty"`
}

// HttpExposeSpec is the `expose.http` block of a service.
type HttpExposeSpec struct {
	Internal   HttpInternal `yaml:"internal"`
	Public     *HttpPublic  `yaml:"public,omitempty"`
	HealthPath string       `yaml:"health_path,omitempty"`
}

// ExposeSpec is the `expose` block of a service.
type ExposeSpec struct {
	HTTP *HttpExposeSpec `yaml:"http,omitempty"`
}

// CaddySpec is the `proxy.caddy` block of a service.
type CaddySpec struct {
	Enable     bool   `yaml:"enable"`
	PathPrefix string `yaml:"path_prefix,omitempty"`
}

// ProxySpec is the `proxy` block of a service.
type ProxySpec struct {
	Caddy *CaddySpec `yaml:"caddy,omitempty"`
}

// ReadinessHTTPGet is an optional readiness probe recovered from the
// original implementation's SystemdSpec.
type ReadinessHTTPGet struct {
	HTTPGet          string `yaml:"http_get"`
	TimeoutSeconds   int    `yaml:"timeout_seconds,omitempty"`
	IntervalSeconds  int    `yaml:"interval_seconds,omitempty"`
}

// SystemdSpec is the `manage.systemd` block of a service or job.
type SystemdSpec struct {
	Enable          *bool             `yaml:"enable,omitempty"`
	Restart         RestartPolicy     `yaml:"restart,omitempty"`
	RestartSec      int               `yaml:"restart_sec,omitempty"`
	After           []string          `yaml:"after,omitempty"`
	WantedBy        []string          `yaml:"wanted_by,omitempty"`
	ExecReload      string            `yaml:"exec_reload,omitempty"`
	NoNewPrivileges bool              `yaml:"no_new_privileges,omitempty"`
	Readiness       *ReadinessHTTPGet `yaml:"readiness,omitempty"`
}

// EnabledOrDefault reports whether systemd management is on; default true,
// as spec.md §4.2 step 5 requires ("managed... default true unless
// explicitly false").
func (s *SystemdSpec) EnabledOrDefault() bool {
	if s == nil || s.Enable == nil {
		return true
	}
	return *s.Enable
}

// ManageSpec is the `manage` block of a service or job.
type ManageSpec struct {
	Systemd *SystemdSpec `yaml:"systemd,omitempty"`
}

// RunCommand runs argv directly.
type RunCommand struct {
	Argv []string `yaml:"argv"`
}

// RunPython invokes a PATH-installed tool.
type RunPython struct {
	Tool string   `yaml:"tool"`
	Args []string `yaml:"args,omitempty"`
}

// RunContainer runs an OCI image under podman or docker.
type RunContainer struct {
	Image   string            `yaml:"image"`
	Command []string          `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Ports   map[int]int       `yaml:"ports,omitempty"`
	Volumes []string          `yaml:"volumes,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Workdir string            `yaml:"workdir,omitempty"`
}

// RunNode invokes a package-manager script (npm/pnpm/yarn run ...).
type RunNode struct {
	Script         string   `yaml:"script"`
	PackageManager string   `yaml:"package_manager,omitempty"`
	Args           []string `yaml:"args,omitempty"`
}

// RunRemote names a component hosted off-node; it cannot be systemd-managed
// locally.
type RunRemote struct {
	BaseURL   string `yaml:"base_url"`
	HealthURL string `yaml:"health_url,omitempty"`
}

// RunSpec is the discriminated `run` union. Exactly one of the pointer
// fields matching Runner is populated when the spec is decoded from YAML.
type RunSpec struct {
	Runner    RunnerKind    `yaml:"runner"`
	Command   *RunCommand   `yaml:"-"`
	Python    *RunPython    `yaml:"-"`
	Container *RunContainer `yaml:"-"`
	Node      *RunNode      `yaml:"-"`
	Remote    *RunRemote    `yaml:"-"`
}

// Describe renders a short human string for logs/errors.
func (r RunSpec) Describe() string {
	switch r.Runner {
	case RunnerCommand:
		if r.Command != nil {
			return fmt.Sprintf("command:%v", r.Command.Argv)
		}
	case RunnerPython:
		if r.Python != nil {
			return fmt.Sprintf("python:%s", r.Python.Tool)
		}
	case RunnerContainer:
		if r.Container != nil {
			return fmt.Sprintf("container:%s", r.Container.Image)
		}
	case RunnerNode:
		if r.Node != nil {
			return fmt.Sprintf("node:%s", r.Node.Script)
		}
	case RunnerRemote:
		if r.Remote != nil {
			return fmt.Sprintf("remote:%s", r.Remote.BaseURL)
		}
	}
	return string(r.Runner)
}

// Service is a declared long-running daemon deployment.
type Service struct {
	ID          string        `yaml:"-"`
	Component   string        `yaml:"component,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Run         RunSpec       `yaml:"run"`
	Expose      *ExposeSpec   `yaml:"expose,omitempty"`
	Proxy       *ProxySpec    `yaml:"proxy,omitempty"`
	Manage      *ManageSpec   `yaml:"manage,omitempty"`
	Defaults    *DefaultsSpec `yaml:"defaults,omitempty"`
}

// Job is a declared scheduled task deployment.
type Job struct {
	ID          string        `yaml:"-"`
	Component   string        `yaml:"component,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Run         RunSpec       `yaml:"run"`
	Schedule    string        `yaml:"schedule"`
	Timezone    string        `yaml:"timezone,omitempty"`
	Manage      *ManageSpec   `yaml:"manage,omitempty"`
	Defaults    *DefaultsSpec `yaml:"defaults,omitempty"`
}

const defaultTimezone = "America/Los_Angeles"

// GatewayConfig is the catalog's single scalar `gateway` block.
type GatewayConfig struct {
	Port int `yaml:"port"`
}

// Catalog is the fully parsed contents of castle.yaml.
type Catalog struct {
	Gateway  GatewayConfig
	Programs map[string]*Program
	Services map[string]*Service
	Jobs     map[string]*Job

	// programOrder etc. preserve insertion order for round-trip saves —
	// see Save in yaml.go.
	programOrder []string
	serviceOrder []string
	jobOrder     []string
}

// New returns an empty catalog with the default gateway port.
func New() *Catalog {
	return &Catalog{
		Gateway:  GatewayConfig{Port: 9000},
		Programs: map[string]*Program{},
		Services: map[string]*Service{},
		Jobs:     map[string]*Job{},
	}
}
