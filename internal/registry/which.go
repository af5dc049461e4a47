package registry

import "os/exec"

// which resolves name to an absolute path via PATH lookup, falling back to
// the bare name when it can't be found — spec.md §4.2 step 4 ("argv[0]
// resolved via PATH lookup if found").
func which(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return name
}

// whichFirst returns the first of names resolvable on PATH, or the first
// name unresolved if none are found — used for the container runtime
// (podman preferred over docker, spec.md §4.2 step 4).
func whichFirst(names ...string) string {
	for _, n := range names {
		if path, err := exec.LookPath(n); err == nil {
			return path
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}
