package rpc

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RouteInfo identifies a route.
type RouteInfo struct {
	Method string // upper case
	Path   string // e.g. /users/:id
}

// String returns "<METHOD> <path>".
func (r RouteInfo) String() string {
	return r.Method + " " + r.Path
}

// Params returns the names of the path parameters in declaration order.
func (r RouteInfo) Params() []string {
	var names []string
	for _, seg := range strings.Split(r.Path, "/") {
		if name, _, ok := paramName(seg); ok {
			names = append(names, name)
		}
	}
	return names
}

// Registry is the route table.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: Register rejects invalid methods, invalid paths and duplicates.
type Registry struct {
	mu     sync.RWMutex
	routes map[RouteInfo]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[RouteInfo]struct{})}
}

// Register adds a route.
func (r *Registry) Register(method, path string) (RouteInfo, error) {
	m, err := NormalizeMethod(method)
	if err != nil {
		return RouteInfo{}, err
	}
	if !strings.HasPrefix(path, "/") {
		return RouteInfo{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	info := RouteInfo{Method: m, Path: path}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[info]; exists {
		return RouteInfo{}, fmt.Errorf("%w: %s", ErrDuplicateRoute, info)
	}
	r.routes[info] = struct{}{}
	return info, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(method, path string) RouteInfo {
	info, err := r.Register(method, path)
	if err != nil {
		panic(err)
	}
	return info
}

// Lookup returns the route registered for path and method.
func (r *Registry) Lookup(path, method string) (RouteInfo, bool) {
	m, err := NormalizeMethod(method)
	if err != nil {
		return RouteInfo{}, false
	}
	info := RouteInfo{Method: m, Path: path}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.routes[info]
	return info, ok
}

// Routes returns all routes sorted by path, then method.
func (r *Registry) Routes() []RouteInfo {
	r.mu.RLock()
	out := make([]RouteInfo, 0, len(r.routes))
	for info := range r.routes {
		out = append(out, info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// paramName parses a ":name", ":name?" or ":name{pattern}" path segment.
func paramName(seg string) (name string, optional bool, ok bool) {
	if !strings.HasPrefix(seg, ":") || len(seg) < 2 {
		return "", false, false
	}
	name = seg[1:]
	if strings.HasSuffix(name, "?") {
		name = strings.TrimSuffix(name, "?")
		optional = true
	}
	if i := strings.IndexByte(name, '{'); i >= 0 {
		name = name[:i]
	}
	return name, optional, name != ""
}
