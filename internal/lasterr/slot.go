// Package lasterr implements the last-error slot read back by boundary
// callers after a failed call.
//
// A [Slot] holds a single (status, message) pair. Every fallible boundary
// operation overwrites it; the most recent writer wins. The status a call
// returns directly is authoritative. The slot exists so a caller can fetch
// the human-readable message right afterward.
package lasterr

import (
	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/guard"
)

const lockFailedMessage = "failed to lock error"

type Slot struct {
	mu      guard.Mutex
	code    dynamo.Status
	message string
}

func New() *Slot {
	return &Slot{}
}

// Set overwrites the slot and returns code unchanged, so call sites can
// record and return in one expression. A poisoned lock drops the write.
func (s *Slot) Set(code dynamo.Status, message string) dynamo.Status {
	_ = s.mu.Do(func() {
		s.code = code
		s.message = message
	})
	return code
}

func (s *Slot) Clear() {
	s.Set(dynamo.StatusOK, "")
}

// Code returns StatusInternalError when the slot cannot be read.
func (s *Slot) Code() dynamo.Status {
	code := dynamo.StatusInternalError
	_ = s.mu.Do(func() { code = s.code })
	return code
}

func (s *Slot) Message() string {
	msg := lockFailedMessage
	_ = s.mu.Do(func() { msg = s.message })
	return msg
}

// CopyMessage copies at most len(dst)-1 bytes of the message into dst and
// terminates it with a zero byte. It always returns the full message length
// so the caller can detect truncation. An empty dst only reports the length.
func (s *Slot) CopyMessage(dst []byte) uint32 {
	msg := s.Message()
	needed := uint32(len(msg))
	if len(dst) == 0 {
		return needed
	}
	n := copy(dst[:len(dst)-1], msg)
	dst[n] = 0
	return needed
}
