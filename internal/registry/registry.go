// Package registry maps opaque handles to world state.
//
// Handles come from an atomically incremented counter whose first value is
// 1, so they are never reused and a stale handle always misses the lookup.
// One [guard.Mutex] protects the whole map. Every operation holds it for
// its full duration, including the callbacks passed to [Registry.View] and
// [Registry.Update]. No pointer to a stored world outlives the callback.
//
// # Thread Safety
//
// All methods are safe for concurrent use. A panic inside a callback
// poisons the registry; later calls fail with [guard.ErrPoisoned] until
// [Registry.ClearPoison].
package registry

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/guard"
)

var ErrNotFound = errors.New("registry: handle not found")

type Registry struct {
	next   atomic.Uint64
	mu     guard.Mutex
	worlds map[dynamo.Handle]*dynamo.World
}

func New() *Registry {
	return &Registry{
		worlds: make(map[dynamo.Handle]*dynamo.World),
	}
}

// Insert stores w under a fresh handle. The handle is allocated before the
// lock is taken; a failed insert burns it.
func (r *Registry) Insert(w dynamo.World) (dynamo.Handle, error) {
	h := dynamo.Handle(r.next.Add(1))
	err := r.mu.Do(func() {
		stored := w
		r.worlds[h] = &stored
	})
	if err != nil {
		return dynamo.NoHandle, fmt.Errorf("insert: %w", err)
	}
	return h, nil
}

func (r *Registry) Remove(h dynamo.Handle) error {
	found := false
	err := r.mu.Do(func() {
		if _, found = r.worlds[h]; found {
			delete(r.worlds, h)
		}
	})
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// View calls fn with a copy of the world stored under h.
func (r *Registry) View(h dynamo.Handle, fn func(dynamo.World)) error {
	return r.access(h, func(w *dynamo.World) { fn(*w) })
}

// Update calls fn with the world stored under h. fn must not retain w.
func (r *Registry) Update(h dynamo.Handle, fn func(w *dynamo.World)) error {
	return r.access(h, fn)
}

func (r *Registry) access(h dynamo.Handle, fn func(*dynamo.World)) error {
	found := false
	err := r.mu.Do(func() {
		var w *dynamo.World
		if w, found = r.worlds[h]; found {
			fn(w)
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Len reports the number of live worlds, or -1 if the registry is poisoned.
func (r *Registry) Len() int {
	n := -1
	_ = r.mu.Do(func() { n = len(r.worlds) })
	return n
}

func (r *Registry) Poisoned() bool { return r.mu.Poisoned() }

func (r *Registry) ClearPoison() { r.mu.ClearPoison() }
