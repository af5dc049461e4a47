package registry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/payneio/castle/internal/catalog"
	"github.com/payneio/castle/internal/secrets"
)

// Options scopes a compile to a single component, or compiles the whole
// catalog when Component is empty (spec.md §4.2). Existing, when set,
// seeds a scoped compile with every already-deployed component so that
// `castle deploy --component X` only overwrites X's entry rather than
// dropping every other component from the registry (mirrors
// original_source/cli's `run_deploy`: `dict(existing.deployed)` before the
// target overwrite).
type Options struct {
	Component string
	Existing  *NodeRegistry
}

// Compile resolves every service and job in cat into a NodeRegistry for
// identity. When opts.Component is set and absent from the catalog, it
// returns ErrNotFound.
func Compile(cat *catalog.Catalog, identity NodeIdentity, store *secrets.Store, opts Options) (*NodeRegistry, error) {
	reg := New(identity)
	if opts.Component != "" && opts.Existing != nil {
		for id, dc := range opts.Existing.Deployed {
			reg.Deployed[id] = dc
		}
	}

	if opts.Component != "" {
		if s, ok := cat.Services[opts.Component]; ok {
			dc, err := compileService(opts.Component, s, cat, store)
			if err != nil {
				return nil, err
			}
			reg.Deployed[opts.Component] = dc
			return reg, nil
		}
		if j, ok := cat.Jobs[opts.Component]; ok {
			dc, err := compileJob(opts.Component, j, cat, store)
			if err != nil {
				return nil, err
			}
			reg.Deployed[opts.Component] = dc
			return reg, nil
		}
		return nil, fmt.Errorf("%w: component %q", ErrNotFound, opts.Component)
	}

	for id, s := range cat.Services {
		dc, err := compileService(id, s, cat, store)
		if err != nil {
			return nil, err
		}
		reg.Deployed[id] = dc
	}
	for id, j := range cat.Jobs {
		dc, err := compileJob(id, j, cat, store)
		if err != nil {
			return nil, err
		}
		reg.Deployed[id] = dc
	}

	if err := copyFrontendOutputs(cat, identity); err != nil {
		return nil, err
	}

	return reg, nil
}

func compileService(id string, s *catalog.Service, cat *catalog.Catalog, store *secrets.Store) (*DeployedComponent, error) {
	managed := s.Manage == nil || s.Manage.Systemd.EnabledOrDefault()
	if s.Run.Runner == catalog.RunnerRemote {
		managed = false
	}

	env := map[string]string{}
	if managed {
		env[envPrefix(id)+"_DATA_DIR"] = "/data/castle/" + id
	}
	var port int
	var healthPath, proxyPath string
	if s.Expose != nil && s.Expose.HTTP != nil {
		port = s.Expose.HTTP.Internal.Port
		healthPath = s.Expose.HTTP.HealthPath
		if port != 0 {
			env[envPrefix(id)+"_PORT"] = fmt.Sprintf("%d", port)
		}
	}
	if s.Proxy != nil && s.Proxy.Caddy != nil && s.Proxy.Caddy.Enable {
		proxyPath = s.Proxy.Caddy.PathPrefix
	}

	if s.Defaults != nil {
		env = mergeEnv(env, s.Defaults.Env)
	}
	env = resolveEnv(env, store)

	runCmd, containerEnv, err := resolveRunCmd(id, s.Run)
	if err != nil {
		return nil, err
	}
	if containerEnv != nil {
		env = mergeEnv(env, resolveEnv(containerEnv, store))
	}

	dc := &DeployedComponent{
		Runner:      string(s.Run.Runner),
		RunCmd:      runCmd,
		Env:         env,
		Description: s.Description,
		Behavior:    BehaviorDaemon,
		Stack:       programStack(cat, s.Component),
		Port:        port,
		HealthPath:  healthPath,
		ProxyPath:   proxyPath,
		Managed:     managed,
	}
	return dc, nil
}

func compileJob(id string, j *catalog.Job, cat *catalog.Catalog, store *secrets.Store) (*DeployedComponent, error) {
	env := map[string]string{
		envPrefix(id) + "_DATA_DIR": "/data/castle/" + id,
	}
	if j.Defaults != nil {
		env = mergeEnv(env, j.Defaults.Env)
	}
	env = resolveEnv(env, store)

	runCmd, containerEnv, err := resolveRunCmd(id, j.Run)
	if err != nil {
		return nil, err
	}
	if containerEnv != nil {
		env = mergeEnv(env, resolveEnv(containerEnv, store))
	}

	return &DeployedComponent{
		Runner:      string(j.Run.Runner),
		RunCmd:      runCmd,
		Env:         env,
		Description: j.Description,
		Behavior:    BehaviorTool,
		Stack:       programStack(cat, j.Component),
		Schedule:    j.Schedule,
		Managed:     true,
	}, nil
}

func programStack(cat *catalog.Catalog, component string) string {
	if component == "" {
		return ""
	}
	if p, ok := cat.Programs[component]; ok {
		return p.Stack
	}
	return ""
}

// resolveRunCmd builds the resolved command line for run, and returns any
// container-scope env that must be merged into the deployed env
// (spec.md §4.2 step 4).
func resolveRunCmd(id string, run catalog.RunSpec) ([]string, map[string]string, error) {
	switch run.Runner {
	case catalog.RunnerCommand:
		if run.Command == nil || len(run.Command.Argv) == 0 {
			return nil, nil, fmt.Errorf("%w: command runner requires argv", ErrCompile)
		}
		argv := append([]string{}, run.Command.Argv...)
		argv[0] = which(argv[0])
		return argv, nil, nil

	case catalog.RunnerPython:
		if run.Python == nil {
			return nil, nil, fmt.Errorf("%w: python runner requires tool", ErrCompile)
		}
		cmd := append([]string{which(run.Python.Tool)}, run.Python.Args...)
		return cmd, nil, nil

	case catalog.RunnerContainer:
		if run.Container == nil {
			return nil, nil, fmt.Errorf("%w: container runner requires image", ErrCompile)
		}
		return resolveContainerCmd(id, run.Container)

	case catalog.RunnerNode:
		if run.Node == nil {
			return nil, nil, fmt.Errorf("%w: node runner requires script", ErrCompile)
		}
		pm := run.Node.PackageManager
		if pm == "" {
			pm = "pnpm"
		}
		cmd := append([]string{pm, "run", run.Node.Script}, run.Node.Args...)
		return cmd, nil, nil

	case catalog.RunnerRemote:
		return nil, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedRunner, run.Runner)
	}
}

func resolveContainerCmd(id string, c *catalog.RunContainer) ([]string, map[string]string, error) {
	runtime := whichFirst("podman", "docker")
	name := fmt.Sprintf("castle-%s", imageBasename(c.Image))

	cmd := []string{runtime, "run", "--rm", "--name=" + name}
	for host, container := range c.Ports {
		cmd = append(cmd, "-p", fmt.Sprintf("%d:%d", host, container))
	}
	for _, v := range c.Volumes {
		cmd = append(cmd, "-v", v)
	}
	for k, v := range c.Env {
		cmd = append(cmd, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	if c.Workdir != "" {
		cmd = append(cmd, "-w", c.Workdir)
	}
	cmd = append(cmd, c.Image)
	if len(c.Command) > 0 {
		cmd = append(cmd, c.Command...)
	}
	cmd = append(cmd, c.Args...)

	_ = id
	return cmd, c.Env, nil
}

func imageBasename(image string) string {
	name := image
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// copyFrontendOutputs implements spec.md §4.2's castle-app static copy:
// "After compilation, if programs['castle-app'] declares build.outputs,
// copy each listed directory ... to ~/.castle/static/castle-app/". This
// folds the copy into Compile itself, resolving the Open Question in
// spec.md §9 ("the design above folds it into compile for atomicity").
func copyFrontendOutputs(cat *catalog.Catalog, identity NodeIdentity) error {
	prog, ok := cat.Programs["castle-app"]
	if !ok || prog.Build == nil || len(prog.Build.Outputs) == 0 || identity.CastleRoot == "" {
		return nil
	}

	dest := filepath.Join(staticDir(identity), "castle-app")
	if err := removeAll(dest); err != nil {
		return err
	}
	srcRoot := filepath.Join(identity.CastleRoot, prog.Source)
	for _, out := range prog.Build.Outputs {
		if err := copyDir(filepath.Join(srcRoot, out), dest); err != nil {
			return err
		}
	}
	return nil
}

// ErrCompile wraps compile-time resolution failures that aren't a plain
// unsupported-runner case (e.g. a run spec missing its required field).
var ErrCompile = fmt.Errorf("compile error")
