package config

import (
	"strings"
)

// Router resolves a folder path to the watched path entry that owns it.
// Roots are validated to be disjoint, so at most one entry can match; the
// longest-prefix rule below is only load-bearing for unvalidated inputs.
type Router struct {
	paths []WatchedPath
	roots []string
}

// NewRouter builds a router over the configured watched paths. Roots are
// normalized once at construction.
func NewRouter(paths []WatchedPath) *Router {
	r := &Router{paths: paths, roots: make([]string, len(paths))}
	for i := range paths {
		r.roots[i] = paths[i].Root()
	}
	return r
}

// Resolve returns the watched path whose root is an ancestor of path, or
// nil when no configured root contains it. The deepest matching root wins.
func (r *Router) Resolve(path string) *WatchedPath {
	target := normalizePath(path)

	best := -1
	for i, root := range r.roots {
		if target != root && !isUnder(target, root) {
			continue
		}
		if best == -1 || len(root) > len(r.roots[best]) {
			best = i
		}
	}

	if best == -1 {
		return nil
	}
	return &r.paths[best]
}

// ResolveAccount returns the owning account's username for path, or
// "unknown" when the path is outside every watched root.
func (r *Router) ResolveAccount(path string) string {
	if wp := r.Resolve(path); wp != nil {
		return wp.Account.Username
	}
	return "unknown"
}

// Labels returns a short description of every route for status output.
func (r *Router) Labels() []string {
	out := make([]string, len(r.paths))
	for i, wp := range r.paths {
		label := wp.Label
		if label == "" {
			label = wp.Account.Username
		}
		out[i] = strings.Join([]string{label, r.roots[i]}, ": ")
	}
	return out
}
