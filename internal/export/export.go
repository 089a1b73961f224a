package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/plkernel/internal/sim"
)

type ExportData struct {
	Y0         float64            `json:"y0"`
	VY0        float64            `json:"vy0"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Batch      uint32             `json:"batch"`
	StepsTaken uint64             `json:"steps_taken"`
	Times      []float64          `json:"times"`
	Heights    []float64          `json:"heights"`
	Velocities []float64          `json:"velocities"`
	Metrics    map[string]float64 `json:"metrics"`
}

// WriteJSON encodes the run as indented JSON. NaN metrics are omitted since
// JSON cannot represent them.
func WriteJSON(w io.Writer, cfg sim.Config, result *sim.Result) error {
	data := ExportData{
		Y0:         cfg.Y0,
		VY0:        cfg.VY0,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Batch:      cfg.Batch,
		StepsTaken: result.StepsTaken,
		Times:      make([]float64, len(result.States)),
		Heights:    make([]float64, len(result.States)),
		Velocities: make([]float64, len(result.States)),
		Metrics:    make(map[string]float64, len(result.Metrics)),
	}

	for i, s := range result.States {
		data.Times[i] = s.T
		data.Heights[i] = s.Y
		data.Velocities[i] = s.VY
	}
	for name, v := range result.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		data.Metrics[name] = v
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteCSV writes one row per sample with full float64 precision.
func WriteCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"t", "y", "vy"}); err != nil {
		return err
	}
	for _, s := range result.States {
		row := []string{
			strconv.FormatFloat(s.T, 'g', -1, 64),
			strconv.FormatFloat(s.Y, 'g', -1, 64),
			strconv.FormatFloat(s.VY, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
