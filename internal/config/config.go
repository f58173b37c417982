// Package config loads the scpilot YAML configuration.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scpilot/scpilot/internal/engine"
)

type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Monitor MonitorConfig `yaml:"monitor"`
	Piano   PianoConfig   `yaml:"piano"`
}

type EngineConfig struct {
	Host        string        `yaml:"host"`
	EnginePort  int           `yaml:"engine_port"`
	ListenPort  int           `yaml:"listen_port"`
	BootScript  string        `yaml:"boot_script"`
	BootTimeout time.Duration `yaml:"boot_timeout"`
	MsgTimeout  time.Duration `yaml:"msg_timeout"`
	Includes    []string      `yaml:"includes"`
	Debug       bool          `yaml:"debug"`
}

type MonitorConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

type PianoConfig struct {
	Velocity float64       `yaml:"velocity"`
	Gate     time.Duration `yaml:"gate"`
	ModParam string        `yaml:"mod_param"`
	ModCurve string        `yaml:"mod_curve"`
	ModMin   float64       `yaml:"mod_min"`
	ModMax   float64       `yaml:"mod_max"`
}

func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Host:        engine.DefaultHost,
			EnginePort:  engine.DefaultEnginePort,
			ListenPort:  engine.DefaultListenPort,
			BootScript:  "sc/boot.scd",
			BootTimeout: engine.DefaultBootTimeout,
			MsgTimeout:  engine.DefaultMsgTimeout,
		},
		Monitor: MonitorConfig{
			Enabled:          false,
			Host:             "127.0.0.1",
			Port:             8571,
			SnapshotInterval: 2 * time.Second,
		},
		Piano: PianoConfig{
			Velocity: 0.8,
			Gate:     400 * time.Millisecond,
			ModCurve: "linear",
			ModMin:   0,
			ModMax:   1,
		},
	}
}

// Load reads a config file, applying defaults for every unset field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults
// instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// EngineConfig converts the engine section into a session config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Host:        c.Engine.Host,
		EnginePort:  c.Engine.EnginePort,
		ListenPort:  c.Engine.ListenPort,
		BootScript:  c.Engine.BootScript,
		BootTimeout: c.Engine.BootTimeout,
		MsgTimeout:  c.Engine.MsgTimeout,
		Includes:    c.Engine.Includes,
		Debug:       c.Engine.Debug,
	}
}
