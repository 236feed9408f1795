// Package config loads the generator configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"palm/geometry"
	"palm/mission"
	"palm/oracle"
	"palm/scenario"
)

// Config is the full configuration surface consumed at startup.
type Config struct {
	// Mission is the path of the case study YAML file. Generation
	// requires it; replay takes the mission from the saved scenario.
	Mission string `mapstructure:"mission"`
	// Budget is the number of search iterations to run.
	Budget int `mapstructure:"budget"`
	// TestsFolder is where accepted test cases are persisted.
	TestsFolder string `mapstructure:"tests_folder"`

	MaxObstacles    int       `mapstructure:"max_obstacles"`
	ExplorationRate float64   `mapstructure:"exploration_rate"`
	// C is the scalar widening constant; superseded by CList and kept
	// only so existing configuration files remain loadable.
	C     float64   `mapstructure:"c"`
	Alpha float64   `mapstructure:"alpha"`
	CList []float64 `mapstructure:"c_list"`

	// Seed fixes the random source; 0 seeds from the clock.
	Seed uint64 `mapstructure:"seed"`

	Bounds  geometry.Bounds `mapstructure:"bounds"`
	MinSize mission.Size    `mapstructure:"min_size"`
	MaxSize mission.Size    `mapstructure:"max_size"`

	Oracle oracle.Config `mapstructure:"oracle"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads the configuration file at path, layering defaults under it
// and PALM_* environment variables over it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("palm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := scenario.DefaultParams()

	v.SetDefault("budget", 100)
	v.SetDefault("tests_folder", "data/results")
	v.SetDefault("max_obstacles", defaults.MaxObstacles)
	v.SetDefault("exploration_rate", 1/math.Sqrt2)
	v.SetDefault("c", 0.5)
	v.SetDefault("alpha", 0.5)
	v.SetDefault("c_list", []float64{0.4, 0.5, 0.6, 0.7})

	v.SetDefault("bounds.minx", defaults.Bounds.MinX)
	v.SetDefault("bounds.maxx", defaults.Bounds.MaxX)
	v.SetDefault("bounds.miny", defaults.Bounds.MinY)
	v.SetDefault("bounds.maxy", defaults.Bounds.MaxY)
	v.SetDefault("min_size.l", defaults.MinSize.L)
	v.SetDefault("min_size.w", defaults.MinSize.W)
	v.SetDefault("min_size.h", defaults.MinSize.H)
	v.SetDefault("max_size.l", defaults.MaxSize.L)
	v.SetDefault("max_size.w", defaults.MaxSize.W)
	v.SetDefault("max_size.h", defaults.MaxSize.H)

	v.SetDefault("oracle.backend", "local")
	v.SetDefault("oracle.workdir", "data/work")
	v.SetDefault("oracle.timeout", 10*time.Minute)

	v.SetDefault("log_level", "info")
}

func (c *Config) validate() error {
	if c.Budget <= 0 {
		return fmt.Errorf("budget must be positive, got %d", c.Budget)
	}
	if c.MaxObstacles <= 0 {
		return fmt.Errorf("max_obstacles must be positive, got %d", c.MaxObstacles)
	}
	if len(c.CList) < c.MaxObstacles {
		return fmt.Errorf("c_list needs at least %d entries, got %d", c.MaxObstacles, len(c.CList))
	}
	return nil
}

// Params assembles the scenario placement parameters.
func (c *Config) Params() scenario.Params {
	return scenario.Params{
		MaxObstacles: c.MaxObstacles,
		Bounds:       c.Bounds,
		MinSize:      c.MinSize,
		MaxSize:      c.MaxSize,
	}
}
