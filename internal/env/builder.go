// Package env assembles the environment handed to a supervised child.
package env

import (
	"fmt"
	"strings"
)

// Layer is a set of variables merged on top of what came before it.
type Layer struct {
	// Name identifies the layer's source in diagnostics, e.g. ".env".
	Name string
	Vars map[string]string
	// Override lets the layer replace keys that are already set. Without it
	// the layer only fills keys that are still missing.
	Override bool
}

// Options controls how the inherited environment is filtered.
type Options struct {
	// StripSecrets drops inherited variables whose names look like
	// credentials (see LooksLikeSecret).
	StripSecrets bool
	// Passthrough lists inherited variables kept even when StripSecrets is
	// set. Matching is case-insensitive.
	Passthrough []string
	// Unset names variables removed after every layer has been applied.
	Unset []string
}

// Origin names the source of variables taken from the parent environment.
const Origin = "inherited"

// Build returns the child environment. parent is typically os.Environ() and
// may be nil for a clean environment. Layers are applied in order; Unset is
// applied last so it wins over everything.
func Build(parent []string, layers []Layer, opts Options) map[string]string {
	vars, _ := build(parent, layers, opts)
	return vars
}

// Origins reports, for every variable Build would return, the name of the
// layer that supplied its value, or Origin for inherited ones.
func Origins(parent []string, layers []Layer, opts Options) map[string]string {
	_, origins := build(parent, layers, opts)
	return origins
}

func build(parent []string, layers []Layer, opts Options) (vars, origins map[string]string) {
	passthrough := make(map[string]bool, len(opts.Passthrough))
	for _, key := range opts.Passthrough {
		passthrough[strings.ToUpper(key)] = true
	}

	vars = make(map[string]string, len(parent))
	origins = make(map[string]string, len(parent))
	for key, value := range ParseList(parent) {
		if opts.StripSecrets && !passthrough[strings.ToUpper(key)] && LooksLikeSecret(key) {
			continue
		}
		vars[key] = value
		origins[key] = Origin
	}

	for _, layer := range layers {
		for key, value := range layer.Vars {
			if _, exists := vars[key]; exists && !layer.Override {
				continue
			}
			vars[key] = value
			origins[key] = layer.Name
		}
	}

	for _, key := range opts.Unset {
		delete(vars, key)
		delete(origins, key)
	}
	return vars, origins
}

// ParseList converts KEY=VALUE entries into a map. Later entries win.
// Entries without a key (such as Windows' "=C:=C:\" drive variables) are
// skipped.
func ParseList(entries []string) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		key, value, ok := strings.Cut(e, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// ParseAssignments parses user-supplied KEY=VALUE pairs, rejecting malformed
// ones.
func ParseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q: expected KEY=VALUE", p)
		}
		if key == "" || strings.ContainsAny(key, " \t\n") {
			return nil, fmt.Errorf("invalid assignment %q: bad variable name", p)
		}
		out[key] = value
	}
	return out, nil
}
