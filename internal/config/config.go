package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/plkernel/internal/integrators"
	"github.com/san-kum/plkernel/internal/kernel"
	"github.com/san-kum/plkernel/internal/sim"
)

const (
	DefaultY0       = 10.0
	DefaultDt       = 0.01
	DefaultDuration = 3.0
	DefaultBatch    = 1
)

type Config struct {
	Y0       float64      `yaml:"y0"`
	VY0      float64      `yaml:"vy0"`
	Dt       float64      `yaml:"dt"`
	Duration float64      `yaml:"duration"`
	Batch    uint32       `yaml:"batch"`
	Kernel   KernelConfig `yaml:"kernel"`
}

// KernelConfig tunes the isolated kernel the CLI builds. The C library
// always uses the built-in defaults.
type KernelConfig struct {
	Gravity  float64 `yaml:"gravity"`
	MaxSteps uint32  `yaml:"max_steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Y0:       DefaultY0,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Batch:    DefaultBatch,
		Kernel: KernelConfig{
			Gravity:  integrators.Gravity,
			MaxSteps: kernel.MaxSteps,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Y0:       c.Y0,
		VY0:      c.VY0,
		Dt:       c.Dt,
		Duration: c.Duration,
		Batch:    c.Batch,
	}
}

// KernelOptions returns options for kernel.New. Zero values keep the
// kernel defaults.
func (c *Config) KernelOptions() []kernel.Option {
	var opts []kernel.Option
	if c.Kernel.Gravity != 0 {
		opts = append(opts, kernel.WithGravity(c.Kernel.Gravity))
	}
	if c.Kernel.MaxSteps != 0 {
		opts = append(opts, kernel.WithMaxSteps(c.Kernel.MaxSteps))
	}
	return opts
}

// GravityOrDefault is the gravity a kernel built from this config uses.
func (c *Config) GravityOrDefault() float64 {
	if c.Kernel.Gravity != 0 {
		return c.Kernel.Gravity
	}
	return integrators.Gravity
}
