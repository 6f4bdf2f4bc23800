package chat

import "sync"

// UserRegistry tracks the display names currently claimed by live
// connections, server-wide. A name is held by at most one connection at a
// time; the registry is the single source of truth for the claim.
type UserRegistry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewUserRegistry creates an empty registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{names: make(map[string]struct{})}
}

// Claim atomically inserts name if it is absent. It returns false when the
// name is already taken; the caller decides the user-facing message.
func (r *UserRegistry) Claim(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.names[name]; taken {
		return false
	}
	r.names[name] = struct{}{}
	return true
}

// Release frees name if it is present. Releasing an unclaimed name is a
// no-op.
func (r *UserRegistry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, name)
}

// Count returns the number of currently claimed names.
func (r *UserRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}
