package sim

import (
	"context"
	"sync"

	"github.com/san-kum/plkernel/internal/session"
)

// Ensemble runs several configurations concurrently against one backend.
// Each run owns its world; the backend serializes access to the registry.
type Ensemble struct {
	backend    session.Backend
	newMetrics func() []Metric
}

// NewEnsemble builds an ensemble. newMetrics may be nil; when set it is
// called once per run so runs never share metric state.
func NewEnsemble(backend session.Backend, newMetrics func() []Metric) *Ensemble {
	return &Ensemble{backend: backend, newMetrics: newMetrics}
}

// Run returns results in the order of cfgs. The first error encountered in
// cfgs order is returned.
func (e *Ensemble) Run(ctx context.Context, cfgs []Config) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i := range cfgs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			s := New(e.backend)
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}

			results[idx], errs[idx] = s.Run(ctx, cfgs[idx])
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
