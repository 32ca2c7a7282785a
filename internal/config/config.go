package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Seed       SeedConfig       `toml:"seed"`
	Scripting  ScriptingConfig  `toml:"scripting"`
	Display    DisplayConfig    `toml:"display"`
	Logging    LoggingConfig    `toml:"logging"`
	Profile    ProfileConfig    `toml:"profile"`
}

type SimulationConfig struct {
	TickRate  time.Duration `toml:"tick_rate"`
	MaxTicks  uint64        `toml:"max_ticks"` // 0 = run until told to stop
	StartTime int64         // set at boot, not from config
}

type SeedConfig struct {
	File string `toml:"file"` // empty = built-in default seed
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type DisplayConfig struct {
	Enabled   bool `toml:"enabled"`
	CellWidth int  `toml:"cell_width"` // terminal columns per meadow unit
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	Output string `toml:"output"` // "stderr", "stdout" or a file path
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu" or "mem"
	Path string `toml:"path"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Simulation.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration, for running without a file.
func Default() *Config {
	cfg := defaults()
	cfg.Simulation.StartTime = time.Now().Unix()
	return cfg
}

func (c *Config) validate() error {
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive, got %s", c.Simulation.TickRate)
	}
	if c.Display.CellWidth < 1 {
		return fmt.Errorf("display.cell_width must be at least 1, got %d", c.Display.CellWidth)
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		return fmt.Errorf("profile.mode %q: want \"\", \"cpu\" or \"mem\"", c.Profile.Mode)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate: 10 * time.Millisecond,
		},
		Seed: SeedConfig{
			File: "data/yaml/meadow.yaml",
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
		},
		Display: DisplayConfig{
			Enabled:   true,
			CellWidth: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "meadow.log",
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}
