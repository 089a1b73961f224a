// Package kernel is the boundary API of the physics kernel.
//
// A [Kernel] ties together a world registry, a last-error slot and the
// semi-implicit Euler integrator. Its methods mirror the C entry points one
// to one: they validate arguments, touch the registry under its lock, record
// the outcome in the last-error slot and return a numeric [dynamo.Status].
// They never panic and never return Go errors; layers that want errors use
// package session.
//
// # Example
//
//	k := kernel.New()
//	h := k.CreateWorld(10, 0)
//	if st := k.StepWorld(h, 0.1, 50); st != dynamo.StatusOK {
//	    buf := make([]byte, 256)
//	    k.LastErrorMessage(buf)
//	}
//	w, _ := k.State(h)
//	k.DestroyWorld(h)
//
// # Thread Safety
//
// All methods are safe for concurrent use. The registry lock is held for the
// full duration of a step call, so a large step count delays every other
// world. The last-error slot is shared by all callers of a kernel: read it
// immediately after the call whose failure you are inspecting.
package kernel
