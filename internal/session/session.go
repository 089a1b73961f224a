// Package session drives a single world through the kernel's boundary
// protocol and turns status codes into Go errors.
//
// Every failure is built from the status the call returned directly plus
// the message fetched from the last-error slot right afterward, the same
// way a foreign-function caller uses the C library.
package session

import (
	"fmt"

	"github.com/san-kum/plkernel/internal/dynamo"
)

// initialMessageBuffer matches the buffer size foreign callers start with.
const initialMessageBuffer = 256

// Backend is the boundary surface a session needs. *kernel.Kernel
// implements it.
type Backend interface {
	CreateWorld(y0, vy0 float64) dynamo.Handle
	DestroyWorld(h dynamo.Handle)
	StepWorld(h dynamo.Handle, dt float64, steps uint32) dynamo.Status
	GetState(h dynamo.Handle, outT, outY, outVY *float64) dynamo.Status
	LastErrorCode() dynamo.Status
	LastErrorMessage(dst []byte) uint32
}

type Session struct {
	backend Backend
	handle  dynamo.Handle
}

// Open creates a world and returns a session bound to it.
func Open(b Backend, y0, vy0 float64) (*Session, error) {
	s := &Session{backend: b}
	if err := s.create(y0, vy0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) create(y0, vy0 float64) error {
	h := s.backend.CreateWorld(y0, vy0)
	if h == dynamo.NoHandle {
		return fmt.Errorf("create world: %w", FetchError(s.backend, s.backend.LastErrorCode()))
	}
	s.handle = h
	return nil
}

func (s *Session) Handle() dynamo.Handle { return s.handle }

// Reset destroys the current world and creates a fresh one.
func (s *Session) Reset(y0, vy0 float64) error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.create(y0, vy0)
}

func (s *Session) Step(dt float64, steps uint32) error {
	if st := s.backend.StepWorld(s.handle, dt, steps); st != dynamo.StatusOK {
		return fmt.Errorf("step world %d: %w", s.handle, FetchError(s.backend, st))
	}
	return nil
}

func (s *Session) State() (dynamo.World, error) {
	var w dynamo.World
	if st := s.backend.GetState(s.handle, &w.T, &w.Y, &w.VY); st != dynamo.StatusOK {
		return dynamo.World{}, fmt.Errorf("get state of world %d: %w", s.handle, FetchError(s.backend, st))
	}
	return w, nil
}

// Close destroys the world. Closing an already closed session is a no-op.
//
// The outcome is judged by whether the world still answers GetState, whose
// returned status is authoritative, rather than by the shared last-error
// code, which another caller of the same backend may overwrite between the
// destroy and the read. A successful close leaves INVALID_HANDLE in the
// slot from that final lookup.
func (s *Session) Close() error {
	if s.handle == dynamo.NoHandle {
		return nil
	}
	h := s.handle
	s.handle = dynamo.NoHandle

	if st := s.lookup(h); st != dynamo.StatusOK {
		return fmt.Errorf("destroy world %d: %w", h, FetchError(s.backend, st))
	}

	s.backend.DestroyWorld(h)

	switch st := s.lookup(h); st {
	case dynamo.StatusInvalidHandle:
		return nil
	case dynamo.StatusOK:
		return fmt.Errorf("destroy world %d: %w", h,
			dynamo.NewError(dynamo.StatusInternalError, "world still live after destroy"))
	default:
		return fmt.Errorf("destroy world %d: %w", h, FetchError(s.backend, st))
	}
}

// lookup reports the status of reading h without keeping the state.
func (s *Session) lookup(h dynamo.Handle) dynamo.Status {
	var t, y, vy float64
	return s.backend.GetState(h, &t, &y, &vy)
}

// FetchError reads the last error message, growing the buffer once if the
// first read was truncated, and pairs it with status.
func FetchError(b Backend, status dynamo.Status) error {
	buf := make([]byte, initialMessageBuffer)
	n := b.LastErrorMessage(buf)
	if int(n) >= len(buf) {
		buf = make([]byte, n+1)
		n = b.LastErrorMessage(buf)
	}
	// A concurrent writer may have replaced the message between reads.
	if int(n) >= len(buf) {
		n = uint32(len(buf) - 1)
	}
	return dynamo.NewError(status, string(buf[:n]))
}
