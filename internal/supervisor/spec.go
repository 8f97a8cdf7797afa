package supervisor

import (
	"maps"
	"slices"
)

// LaunchSpec describes what to run and with which environment.
type LaunchSpec struct {
	// Path is the executable to start. Names without a path separator are
	// resolved against PATH by os/exec.
	Path string

	// Args are passed to the child after argv[0].
	Args []string

	// Env is the complete child environment. Callers that want the current
	// process environment must seed it themselves (see env.Build).
	Env map[string]string
}

// Environ renders Env as KEY=VALUE entries sorted by key.
func (s LaunchSpec) Environ() []string {
	keys := slices.Sorted(maps.Keys(s.Env))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+s.Env[k])
	}
	return out
}

// clone returns a copy that shares no memory with s.
func (s LaunchSpec) clone() LaunchSpec {
	return LaunchSpec{
		Path: s.Path,
		Args: slices.Clone(s.Args),
		Env:  maps.Clone(s.Env),
	}
}
