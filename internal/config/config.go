// Package config handles meshletc configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-meshlet/pkg/meshlet"
)

// ErrInvalid is returned by Validate for settings the builder cannot use.
var ErrInvalid = errors.New("invalid config")

// Config holds all meshletc settings.
type Config struct {
	Meshlet  MeshletConfig  `yaml:"meshlet"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MeshletConfig holds clustering budgets and cull data settings.
type MeshletConfig struct {
	MaxVertices      uint32 `yaml:"max_vertices"`
	MaxPrimitives    uint32 `yaml:"max_primitives"`
	CullData         bool   `yaml:"cull_data"`
	ClockwiseWinding bool   `yaml:"clockwise_winding"`
}

// PipelineConfig holds section scheduling settings.
type PipelineConfig struct {
	Workers int `yaml:"workers"` // 0 means GOMAXPROCS
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Report string `yaml:"report"` // Empty or "-" writes to stdout
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Meshlet: MeshletConfig{
			MaxVertices:   64,
			MaxPrimitives: 126,
			CullData:      true,
		},
		Pipeline: PipelineConfig{
			Workers: 0,
		},
		Output: OutputConfig{
			Report: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks the budgets against the packed triangle limits.
func (c *Config) Validate() error {
	if c.Meshlet.MaxVertices < 3 || c.Meshlet.MaxVertices > meshlet.MaxLocalVertices {
		return fmt.Errorf("%w: meshlet.max_vertices %d outside [3, %d]", ErrInvalid, c.Meshlet.MaxVertices, meshlet.MaxLocalVertices)
	}
	if c.Meshlet.MaxPrimitives == 0 {
		return fmt.Errorf("%w: meshlet.max_primitives must be positive", ErrInvalid)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("%w: pipeline.workers %d is negative", ErrInvalid, c.Pipeline.Workers)
	}
	return nil
}

// BuildOptions converts the config into builder options.
func (c *Config) BuildOptions(log *zap.Logger) meshlet.Options {
	workers := c.Pipeline.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return meshlet.Options{
		MaxVertices:      c.Meshlet.MaxVertices,
		MaxPrimitives:    c.Meshlet.MaxPrimitives,
		CullData:         c.Meshlet.CullData,
		ClockwiseWinding: c.Meshlet.ClockwiseWinding,
		Workers:          workers,
		Logger:           log,
	}
}
