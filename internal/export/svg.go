package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/plkernel/internal/sim"
)

var ErrTooFewSamples = errors.New("export: need at least two samples")

// WriteSVG draws the height trace y(t) as a single SVG path, with the ground
// line at y = 0 when it falls inside the plotted range.
func WriteSVG(w io.Writer, result *sim.Result, width, height int, stroke string) error {
	states := result.States
	if len(states) < 2 {
		return ErrTooFewSamples
	}

	minT, maxT := states[0].T, states[0].T
	minY, maxY := states[0].Y, states[0].Y
	for _, s := range states {
		minT = min(minT, s.T)
		maxT = max(maxT, s.T)
		minY = min(minY, s.Y)
		maxY = max(maxY, s.Y)
	}

	rangeT := maxT - minT
	rangeY := maxY - minY
	if rangeT == 0 {
		rangeT = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	px := func(t float64) float64 { return (t - minT) / rangeT * float64(width) }
	py := func(y float64) float64 { return float64(height) - (y-minY)/rangeY*float64(height) }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	if minY <= 0 && maxY >= 0 {
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444444" stroke-dasharray="4 4"/>
`, py(0), width, py(0))
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i, s := range states {
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", px(s.T), py(s.Y))
	}
	sb.WriteString("\"/>\n</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
