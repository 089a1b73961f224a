// Package viz renders a falling world live in the terminal.
//
// The [Model] is a Bubble Tea program that owns one kernel session and
// advances it by a fixed batch of steps every frame. The left pane draws the
// mass and its recent trail on a Braille [Canvas]; the right pane shows the
// state, the mechanical energy and a height sparkline.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial height and velocity
//	T     - Cycle color themes
//	?     - Toggle full help
//	Q     - Quit
//
// The view stops advancing once the mass reaches the ground; reset to drop it
// again.
package viz
