package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/plkernel/internal/dynamo"
	"github.com/san-kum/plkernel/internal/session"
)

type Simulator struct {
	backend   session.Backend
	metrics   []Metric
	observers []Observer
}

func New(backend session.Backend) *Simulator {
	return &Simulator{
		backend:   backend,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run creates a world, samples its state after every batch and destroys it.
// On cancellation or a kernel failure the partial result is returned along
// with the error.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	samples := cfg.Samples()
	result := &Result{
		States:  make([]dynamo.World, 0, samples+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	sess, err := session.Open(s.backend, cfg.Y0, cfg.VY0)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	w, err := sess.State()
	if err != nil {
		return nil, err
	}
	s.record(result, w)

	for i := 0; i < samples; i++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, ctx.Err()
		default:
		}

		if err := sess.Step(cfg.Dt, cfg.Batch); err != nil {
			s.collect(result)
			return result, fmt.Errorf("sample %d: %w", i, err)
		}
		result.StepsTaken += uint64(cfg.Batch)

		w, err := sess.State()
		if err != nil {
			s.collect(result)
			return result, fmt.Errorf("sample %d: %w", i, err)
		}
		s.record(result, w)
	}

	s.collect(result)
	if err := sess.Close(); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Simulator) record(result *Result, w dynamo.World) {
	result.States = append(result.States, w)
	for _, m := range s.metrics {
		m.Observe(w)
	}
	for _, obs := range s.observers {
		obs.OnStep(w)
	}
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) || cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive and finite, got %f", cfg.Dt)
	}
	if math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) || cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive and finite, got %f", cfg.Duration)
	}
	if cfg.Batch == 0 {
		return fmt.Errorf("batch must be at least 1")
	}
	if cfg.Samples() < 0 {
		return fmt.Errorf("run needs more than %d samples; raise dt or batch", MaxSamples)
	}
	return nil
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
