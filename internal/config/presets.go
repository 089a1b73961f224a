package config

import (
	"sort"

	"github.com/san-kum/plkernel/internal/integrators"
	"github.com/san-kum/plkernel/internal/kernel"
)

var earth = KernelConfig{Gravity: integrators.Gravity, MaxSteps: kernel.MaxSteps}

var Presets = map[string]*Config{
	"drop": {
		Y0: 10.0, VY0: 0.0, Dt: 0.01, Duration: 3.0, Batch: 1, Kernel: earth,
	},
	"toss": {
		Y0: 0.0, VY0: 20.0, Dt: 0.01, Duration: 4.2, Batch: 1, Kernel: earth,
	},
	"cliff": {
		Y0: 100.0, VY0: 0.0, Dt: 0.001, Duration: 4.6, Batch: 20, Kernel: earth,
	},
	"moon": {
		Y0: 10.0, VY0: 0.0, Dt: 0.01, Duration: 3.6, Batch: 1,
		Kernel: KernelConfig{Gravity: 1.62, MaxSteps: kernel.MaxSteps},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
