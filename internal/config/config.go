package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ebmfit/internal/ebm"
)

const (
	DefaultN          = 18
	DefaultDt         = 2.6e6 // roughly one month in seconds
	DefaultSteps      = 600
	DefaultForcing    = 340.0 // annual-mean insolation, W m^-2
	DefaultMethod     = "gd"
	DefaultRate       = 1e-3
	DefaultTolerance  = 1e-6
	DefaultIterations = 500
	DefaultBlowup     = 1e8
)

// Physics mirrors ebm.Config in yaml form.
type Physics struct {
	Stefan         float64 `yaml:"stefan"`
	Diffusion      float64 `yaml:"diffusion"`
	HeatCapacity   float64 `yaml:"heat_capacity"`
	AlbedoFlat     float64 `yaml:"albedo_flat"`
	AlbedoGradient float64 `yaml:"albedo_gradient"`
	Emissivity     float64 `yaml:"emissivity"`
	InitBias       float64 `yaml:"init_bias"`
	InitRange      float64 `yaml:"init_range"`
}

// Config is a full run description: grid, integration, data sources,
// descent method, and stopping rules.
type Config struct {
	N     int     `yaml:"n"`
	Dt    float64 `yaml:"dt"`
	Steps int     `yaml:"steps"`

	// Constant insolation used when no forcing file is given.
	Forcing     float64 `yaml:"forcing"`
	ForcingFile string  `yaml:"forcing_file"`
	// Observed zonal-mean temperatures in Celsius, one per band. When
	// empty a synthetic analytic profile is used.
	ObservationFile string `yaml:"observation_file"`

	Method        string  `yaml:"method"`
	Rate          float64 `yaml:"rate"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	Blowup        float64 `yaml:"blowup"`

	Physics Physics `yaml:"physics"`
}

func DefaultConfig() *Config {
	p := ebm.DefaultConfig()
	return &Config{
		N:             DefaultN,
		Dt:            DefaultDt,
		Steps:         DefaultSteps,
		Forcing:       DefaultForcing,
		Method:        DefaultMethod,
		Rate:          DefaultRate,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultIterations,
		Blowup:        DefaultBlowup,
		Physics: Physics{
			Stefan:         p.Stefan,
			Diffusion:      p.Diffusion,
			HeatCapacity:   p.HeatCapacity,
			AlbedoFlat:     p.AlbedoFlat,
			AlbedoGradient: p.AlbedoGradient,
			Emissivity:     p.Emissivity,
			InitBias:       p.InitBias,
			InitRange:      p.InitRange,
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
	if err := cfg.Validate(); err != nil {
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

func (c *Config) Validate() error {
	if c.N < 2 {
		return fmt.Errorf("n must be at least 2, got %d", c.N)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", c.Steps)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %g", c.Rate)
	}
	return nil
}

// ModelConfig converts the yaml physics block into the explicit constant
// structure the simulator takes.
func (c *Config) ModelConfig() ebm.Config {
	return ebm.Config{
		Stefan:         c.Physics.Stefan,
		Diffusion:      c.Physics.Diffusion,
		HeatCapacity:   c.Physics.HeatCapacity,
		AlbedoFlat:     c.Physics.AlbedoFlat,
		AlbedoGradient: c.Physics.AlbedoGradient,
		Emissivity:     c.Physics.Emissivity,
		InitBias:       c.Physics.InitBias,
		InitRange:      c.Physics.InitRange,
	}
}
