package sim

import (
	"math"

	"github.com/san-kum/plkernel/internal/dynamo"
)

type Metric interface {
	Name() string
	Observe(w dynamo.World)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w dynamo.World)
}

// Config describes one fixed-step run. Every sample advances the world by
// Batch kernel steps of Dt.
type Config struct {
	Y0       float64
	VY0      float64
	Dt       float64
	Duration float64
	Batch    uint32
}

// DefaultConfig drops a mass from 10m for 3s at 100 samples per second.
func DefaultConfig() Config {
	return Config{
		Y0:       10.0,
		VY0:      0.0,
		Dt:       0.01,
		Duration: 3.0,
		Batch:    1,
	}
}

// MaxSamples bounds the number of states a single run records.
const MaxSamples = 1_000_000

// Samples is the number of step calls a run performs, or -1 when that count
// is not a number or exceeds MaxSamples.
func (c Config) Samples() int {
	if c.Dt <= 0 || c.Batch == 0 {
		return 0
	}
	n := roundHalfUp(c.Duration / (c.Dt * float64(c.Batch)))
	if math.IsNaN(n) || n > MaxSamples {
		return -1
	}
	return int(n)
}

type Result struct {
	States     []dynamo.World
	Metrics    map[string]float64
	StepsTaken uint64
}

// Final returns the last recorded state.
func (r *Result) Final() dynamo.World {
	if len(r.States) == 0 {
		return dynamo.World{}
	}
	return r.States[len(r.States)-1]
}
