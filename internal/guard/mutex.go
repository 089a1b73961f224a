// Package guard provides a mutex that remembers when its holder panicked.
//
// A panic while the lock is held leaves the protected data in an unknown
// state. The mutex marks itself poisoned and every later [Mutex.Do] fails
// with [ErrPoisoned] until [Mutex.ClearPoison] is called.
package guard

import (
	"errors"
	"sync"
	"sync/atomic"
)

var ErrPoisoned = errors.New("guard: lock poisoned")

// Mutex is a poisonable mutual-exclusion lock. The zero value is unlocked
// and healthy.
type Mutex struct {
	mu       sync.Mutex
	poisoned atomic.Bool
}

// Do runs fn while holding the lock. It returns ErrPoisoned without running
// fn if a previous holder panicked. A panic in fn poisons the mutex, releases
// it, and keeps unwinding.
func (m *Mutex) Do(fn func()) error {
	m.mu.Lock()
	if m.poisoned.Load() {
		m.mu.Unlock()
		return ErrPoisoned
	}

	completed := false
	defer func() {
		if !completed {
			m.poisoned.Store(true)
		}
		m.mu.Unlock()
	}()

	fn()
	completed = true
	return nil
}

func (m *Mutex) Poisoned() bool { return m.poisoned.Load() }

// ClearPoison marks the mutex healthy again. The caller is responsible for
// restoring the protected data to a consistent state first.
func (m *Mutex) ClearPoison() { m.poisoned.Store(false) }
