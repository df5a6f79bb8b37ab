// Package config loads the YAML configuration of a training run.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sanonone/kektorsom/pkg/core/distance"
	"github.com/sanonone/kektorsom/pkg/som"
	"gopkg.in/yaml.v3"
)

// Config describes a complete training run and the surfaces around it.
type Config struct {
	Lattice  LatticeConfig  `yaml:"lattice" json:"lattice"`
	Training TrainingConfig `yaml:"training" json:"training"`
	Samples  [][]float32    `yaml:"samples" json:"samples"`
	Frames   FramesConfig   `yaml:"frames" json:"frames"`
	Render   RenderConfig   `yaml:"render" json:"render"`
	Server   ServerConfig   `yaml:"server" json:"-"`
}

type LatticeConfig struct {
	Rows int `yaml:"rows" json:"rows"`
	Cols int `yaml:"cols" json:"cols"`
	Dim  int `yaml:"dim" json:"dim"`
}

type TrainingConfig struct {
	LearnRate  float64 `yaml:"learn_rate" json:"learn_rate"`
	Iterations int     `yaml:"iterations" json:"iterations"`
	// Seed drives both lattice initialization and sample selection.
	// 0 picks a time-based seed.
	Seed    int64 `yaml:"seed" json:"seed"`
	Workers int   `yaml:"workers" json:"workers"`
	// LogEvery is the interval between progress log lines. 0 disables them.
	LogEvery time.Duration `yaml:"log_every" json:"log_every"`
}

type FramesConfig struct {
	// Every records a frame each N steps. 0 disables the history.
	Every     int    `yaml:"every" json:"every"`
	Capacity  int    `yaml:"capacity" json:"capacity"`
	Precision string `yaml:"precision" json:"precision"`
}

type RenderConfig struct {
	Scale  int    `yaml:"scale" json:"scale"`
	Output string `yaml:"output" json:"output"`
}

type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr"`
	AuthToken string `yaml:"auth_token"`
}

// DefaultSamples are the nine reference colours: red, green, blue, yellow,
// magenta, cyan, dark red, olive and orange.
func DefaultSamples() [][]float32 {
	return [][]float32{
		{1.0, 0.0, 0.0},
		{0.0, 1.0, 0.0},
		{0.0, 0.0, 1.0},
		{1.0, 1.0, 0.0},
		{1.0, 0.0, 1.0},
		{0.0, 1.0, 1.0},
		{0.5, 0.0, 0.0},
		{0.5, 0.5, 0.0},
		{1.0, 0.647, 0.0},
	}
}

// DefaultConfig returns a working configuration for the colour map demo.
func DefaultConfig() Config {
	opts := som.DefaultOptions()
	return Config{
		Lattice: LatticeConfig{
			Rows: opts.Rows,
			Cols: opts.Cols,
			Dim:  opts.Dim,
		},
		Training: TrainingConfig{
			LearnRate:  opts.LearnRate,
			Iterations: opts.TotalIterations,
			LogEvery:   2 * time.Second,
		},
		Samples: DefaultSamples(),
		Frames: FramesConfig{
			Every:     100,
			Capacity:  64,
			Precision: string(distance.Float16),
		},
		Render: RenderConfig{
			Scale:  10,
			Output: "som.png",
		},
		Server: ServerConfig{
			HTTPAddr: ":9093",
		},
	}
}

// Load decodes the file at path and validates the result.
func Load(path string) (Config, error) {
	cfg, err := Decode(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode reads the YAML file at path on top of the defaults without
// validating it, so callers can apply overrides first. Unknown keys are
// rejected. An empty path returns the defaults.
func Decode(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("YAML syntax error in config: %w", err)
	}

	return cfg, nil
}

// ErrInvalidSample is wrapped by Validate when a sample does not match the lattice dimension.
var ErrInvalidSample = errors.New("sample dimension does not match the lattice")

// EngineOptions converts the lattice and training sections.
func (c Config) EngineOptions() som.Options {
	return som.Options{
		Rows:            c.Lattice.Rows,
		Cols:            c.Lattice.Cols,
		Dim:             c.Lattice.Dim,
		LearnRate:       c.Training.LearnRate,
		TotalIterations: c.Training.Iterations,
		Workers:         c.Training.Workers,
	}
}

// SampleNodes converts the samples into engine nodes.
func (c Config) SampleNodes() []som.Node {
	nodes := make([]som.Node, len(c.Samples))
	for i, s := range c.Samples {
		nodes[i] = som.NewNode(s...)
	}
	return nodes
}

// Validate checks that the configuration describes a trainable run.
func (c Config) Validate() error {
	if err := c.EngineOptions().Validate(); err != nil {
		return fmt.Errorf("invalid lattice/training config: %w", err)
	}
	if len(c.Samples) == 0 {
		return errors.New("config has no samples")
	}
	for i, s := range c.Samples {
		if len(s) != c.Lattice.Dim {
			return fmt.Errorf("sample %d has %d components, lattice has %d: %w", i, len(s), c.Lattice.Dim, ErrInvalidSample)
		}
	}
	if c.Frames.Every < 0 || c.Frames.Capacity < 0 {
		return fmt.Errorf("frames.every and frames.capacity must not be negative")
	}
	if _, err := distance.ParsePrecision(c.Frames.Precision); err != nil {
		return fmt.Errorf("invalid frames config: %w", err)
	}
	if c.Render.Scale < 0 {
		return fmt.Errorf("render.scale must not be negative, got %d", c.Render.Scale)
	}
	return nil
}
