package integrators

import "github.com/san-kum/plkernel/internal/dynamo"

// Gravity is the downward acceleration magnitude in m/s².
const Gravity = 9.81

// SymplecticEuler is the semi-implicit Euler scheme for a point mass under
// constant downward acceleration G. Velocity is updated first and the new
// velocity moves the position.
type SymplecticEuler struct {
	G float64
}

func NewSymplecticEuler() SymplecticEuler {
	return SymplecticEuler{G: Gravity}
}

func (s SymplecticEuler) Step(w dynamo.World, dt float64) dynamo.World {
	w.VY -= s.G * dt
	w.Y += w.VY * dt
	w.T += dt
	return w
}

// Advance applies Step steps times. Only the final state is observable and
// the operation order is fixed, so equal inputs give bit-identical outputs.
func (s SymplecticEuler) Advance(w dynamo.World, dt float64, steps uint32) dynamo.World {
	for i := uint32(0); i < steps; i++ {
		w = s.Step(w, dt)
	}
	return w
}

// Energy is the mechanical energy per unit mass, taking y=0 as the zero of
// potential energy.
func (s SymplecticEuler) Energy(w dynamo.World) float64 {
	return 0.5*w.VY*w.VY + s.G*w.Y
}
