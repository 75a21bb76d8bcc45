// Package registry tracks the set of live sessions.
package registry

import "sync"

// Registry is an insertion-ordered set guarded by a RWMutex. Members are
// compared by identity, so pointer types give per-connection membership.
type Registry[T comparable] struct {
	mu      sync.RWMutex
	members []T
	index   map[T]struct{}
}

// New returns an empty Registry.
func New[T comparable]() *Registry[T] {
	return &Registry[T]{index: make(map[T]struct{})}
}

// Register adds item. It reports false if item was already a member, in which
// case nothing changes.
func (r *Registry[T]) Register(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[item]; ok {
		return false
	}
	r.index[item] = struct{}{}
	r.members = append(r.members, item)
	return true
}

// Unregister removes item if present and reports whether it was removed.
// Removing an absent item is a no-op.
func (r *Registry[T]) Unregister(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[item]; !ok {
		return false
	}
	delete(r.index, item)
	for i, m := range r.members {
		if m == item {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether item is a member.
func (r *Registry[T]) Contains(item T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[item]
	return ok
}

// Len returns the number of members.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Snapshot returns a copy of the members in insertion order. The copy is not
// affected by later Register or Unregister calls.
func (r *Registry[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(r.members))
	copy(out, r.members)
	return out
}
