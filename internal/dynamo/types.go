package dynamo

import (
	"fmt"
	"math"
)

// Handle identifies a live world. Handles are never reused.
type Handle uint64

// NoHandle is returned when no world could be created.
const NoHandle Handle = 0

// World is the state of a point mass falling under constant gravity.
type World struct {
	T  float64
	Y  float64
	VY float64
}

// NewWorld returns a world at t=0 with the given height and velocity.
func NewWorld(y0, vy0 float64) World {
	return World{Y: y0, VY: vy0}
}

func (w World) IsValid() bool {
	for _, v := range [...]float64{w.T, w.Y, w.VY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (w World) String() string {
	return fmt.Sprintf("t=%.4f y=%.6f vy=%.6f", w.T, w.Y, w.VY)
}

// Status is the numeric outcome of a boundary call.
type Status int32

const (
	StatusOK              Status = 0
	StatusInvalidArgument Status = 1
	StatusInvalidHandle   Status = 2
	StatusPolicyDenied    Status = 3
	StatusInternalError   Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusInvalidHandle:
		return "invalid handle"
	case StatusPolicyDenied:
		return "policy denied"
	case StatusInternalError:
		return "internal error"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}
