// Package config loads the rollcat YAML configuration and reads and writes
// device settings templates.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/herlein/rollcat/pkg/radio"
)

// Config is the top-level configuration file
type Config struct {
	Radio   radio.Settings `yaml:"radio"`
	Devices DevicesConfig  `yaml:"devices"`
	Paths   PathsConfig    `yaml:"paths"`
	Jam     JamConfig      `yaml:"jam"`
	Scan    ScanConfig     `yaml:"scan"`
	Log     LogConfig      `yaml:"log"`
	Metrics MetricsConfig  `yaml:"metrics"`
	NATS    NATSConfig     `yaml:"nats"`
}

// DevicesConfig holds YardStick One selectors ("", serial, bus:addr, #N)
type DevicesConfig struct {
	Capture string `yaml:"capture"`
	Jam     string `yaml:"jam"`
}

// PathsConfig holds output directories
type PathsConfig struct {
	Captures  string `yaml:"captures"`
	ScanLogs  string `yaml:"scan_logs"`
	Templates string `yaml:"templates"`
}

// JamConfig holds jammer parameters
type JamConfig struct {
	Variance  uint32 `yaml:"variance"`
	BurstSize int    `yaml:"burst_size"`
	Repeat    int    `yaml:"repeat"`
}

// ScanConfig holds scanner parameters
type ScanConfig struct {
	Frequencies []uint32      `yaml:"frequencies"`
	Interval    uint32        `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig holds logging parameters
type LogConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig holds the Prometheus listen address; empty disables it
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// NATSConfig holds the event bus settings; empty URL disables it
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Radio: radio.DefaultSettings(),
		Paths: PathsConfig{
			Captures:  "./captures",
			ScanLogs:  "./scanning_logs",
			Templates: "./device_templates",
		},
		Jam: JamConfig{
			Variance:  80000,
			BurstSize: 255,
			Repeat:    10,
		},
		Scan: ScanConfig{
			Frequencies: []uint32{315000000, 433000000},
			Interval:    50000,
			Timeout:     3 * time.Second,
		},
		Log:  LogConfig{Level: "info"},
		NATS: NATSConfig{Subject: "rollcat.events"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ROLLCAT_FREQUENCY"); v != "" {
		f, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.Wrapf(radio.ErrInvalidSettings, "ROLLCAT_FREQUENCY=%q", v)
		}
		c.Radio.Frequency = uint32(f)
	}
	if v := os.Getenv("ROLLCAT_CAPTURE_DEVICE"); v != "" {
		c.Devices.Capture = v
	}
	if v := os.Getenv("ROLLCAT_JAM_DEVICE"); v != "" {
		c.Devices.Jam = v
	}
	if v := os.Getenv("ROLLCAT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ROLLCAT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("ROLLCAT_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	return nil
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if err := c.Radio.Validate(); err != nil {
		return err
	}
	if c.Jam.BurstSize <= 0 || c.Jam.BurstSize > 255 {
		return errors.Errorf("jam burst_size %d out of range 1-255", c.Jam.BurstSize)
	}
	if c.Scan.Timeout <= 0 {
		return errors.Errorf("scan timeout must be positive")
	}
	return nil
}
