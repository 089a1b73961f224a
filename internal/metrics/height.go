package metrics

import (
	"math"

	"github.com/san-kum/plkernel/internal/dynamo"
)

// MaxHeight tracks the highest observed position.
type MaxHeight struct {
	name    string
	max     float64
	samples int
}

func NewMaxHeight() *MaxHeight {
	return &MaxHeight{name: "max_height"}
}

func (m *MaxHeight) Name() string { return m.name }

func (m *MaxHeight) Observe(w dynamo.World) {
	if m.samples == 0 {
		m.max = w.Y
	}
	m.max = math.Max(m.max, w.Y)
	m.samples++
}

func (m *MaxHeight) Value() float64 { return m.max }

func (m *MaxHeight) Reset() {
	m.max = 0
	m.samples = 0
}

// GroundTime is the first time the mass reaches y <= 0, linearly
// interpolated between samples. It is NaN until a crossing is observed.
type GroundTime struct {
	name    string
	prev    dynamo.World
	crossed float64
	samples int
}

func NewGroundTime() *GroundTime {
	return &GroundTime{name: "ground_time", crossed: math.NaN()}
}

func (g *GroundTime) Name() string { return g.name }

func (g *GroundTime) Observe(w dynamo.World) {
	defer func() {
		g.prev = w
		g.samples++
	}()

	if !math.IsNaN(g.crossed) {
		return
	}
	if w.Y > 0 {
		return
	}
	if g.samples == 0 || g.prev.Y <= 0 {
		g.crossed = w.T
		return
	}
	frac := g.prev.Y / (g.prev.Y - w.Y)
	g.crossed = g.prev.T + frac*(w.T-g.prev.T)
}

func (g *GroundTime) Value() float64 { return g.crossed }

func (g *GroundTime) Reset() {
	g.prev = dynamo.World{}
	g.crossed = math.NaN()
	g.samples = 0
}
