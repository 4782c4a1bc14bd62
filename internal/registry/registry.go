// Package registry tracks which websocket connections belong to which user.
// It is pure in-process state: entries exist only while a bound connection is
// live and the whole index is rebuilt as clients reconnect after a restart.
package registry

import "sync"

type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

func New() *Registry {
	return &Registry{conns: make(map[string]map[string]struct{})}
}

// Register adds connID to userID's connection set. Registering the same pair
// twice is a no-op.
func (r *Registry) Register(userID string, connID string) {
	if r == nil || userID == "" || connID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[userID]; !ok {
		r.conns[userID] = make(map[string]struct{})
	}
	r.conns[userID][connID] = struct{}{}
}

// Deregister removes connID from userID's connection set. Removing the last
// connection drops the user key entirely, so no empty sets are retained.
// Unknown users or connections are a no-op.
func (r *Registry) Deregister(userID string, connID string) {
	if r == nil || userID == "" || connID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// Lookup returns the connection IDs currently registered for userID. The
// result is a copy; an unknown user yields an empty slice, never an error.
func (r *Registry) Lookup(userID string) []string {
	if r == nil || userID == "" {
		return []string{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether userID holds at least one live connection.
func (r *Registry) Has(userID string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

func (r *Registry) UserCount() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) ConnectionCount() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, set := range r.conns {
		total += len(set)
	}
	return total
}
