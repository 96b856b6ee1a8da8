// Package config loads simulator configuration from a YAML file,
// merging it over the built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "5s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	Downlink DownlinkConfig `yaml:"downlink"`
	Uplink   UplinkConfig   `yaml:"uplink"`
	Sim      SimConfig      `yaml:"sim"`
	Store    StoreConfig    `yaml:"store"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DownlinkConfig addresses the telemetry datagram receiver.
type DownlinkConfig struct {
	Address string `yaml:"address"`
}

// UplinkConfig binds the telecommand listener.
type UplinkConfig struct {
	Listen string `yaml:"listen"`
}

// SimConfig drives the telemetry generator and telecommand handler.
type SimConfig struct {
	Tick               Duration `yaml:"tick"`
	APIDBase           uint16   `yaml:"apid_base"`
	SourceID           uint16   `yaml:"source_id"`
	DestinationID      uint16   `yaml:"destination_id"`
	TLELine1           string   `yaml:"tle_line1"`
	TLELine2           string   `yaml:"tle_line2"`
	DegradedShift      float64  `yaml:"degraded_shift"`
	DegradedWidthScale float64  `yaml:"degraded_width_scale"`
	DiagnosticDuration Duration `yaml:"diagnostic_duration"`
}

// StoreConfig bounds the parameter store.
type StoreConfig struct {
	StalenessWindow Duration `yaml:"staleness_window"`
}

// ArchiveConfig bounds the in-memory packet archive.
type ArchiveConfig struct {
	Depth int `yaml:"depth"`
}

// MetricsConfig binds the /metrics HTTP endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

func Defaults() *Config {
	return &Config{
		Downlink: DownlinkConfig{
			Address: "127.0.0.1:5005",
		},
		Uplink: UplinkConfig{
			Listen: "127.0.0.1:5006",
		},
		Sim: SimConfig{
			Tick:               Duration(time.Second),
			APIDBase:           100,
			SourceID:           2000,
			DestinationID:      1000,
			TLELine1:           "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990",
			TLELine2:           "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760",
			DegradedShift:      0.25,
			DegradedWidthScale: 0.5,
			DiagnosticDuration: Duration(time.Minute),
		},
		Store: StoreConfig{
			StalenessWindow: Duration(5 * time.Second),
		},
		Archive: ArchiveConfig{
			Depth: 1024,
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
	}
}

// Load reads path over Defaults. A missing file is not an error; the
// defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the simulator cannot run with.
func (c *Config) Validate() error {
	if c.Downlink.Address == "" {
		return fmt.Errorf("downlink.address must not be empty")
	}
	if c.Uplink.Listen == "" {
		return fmt.Errorf("uplink.listen must not be empty")
	}
	if c.Sim.Tick <= 0 {
		return fmt.Errorf("sim.tick must be positive, got %s", c.Sim.Tick)
	}
	// Four consecutive APIDs must stay within the 11-bit field.
	if c.Sim.APIDBase > 0x7FF-3 {
		return fmt.Errorf("sim.apid_base %d leaves no room for subsystem APIDs", c.Sim.APIDBase)
	}
	if c.Sim.DegradedShift < 0 || c.Sim.DegradedShift >= 1 {
		return fmt.Errorf("sim.degraded_shift must be in [0,1), got %g", c.Sim.DegradedShift)
	}
	if c.Sim.DegradedWidthScale <= 0 || c.Sim.DegradedWidthScale > 1 {
		return fmt.Errorf("sim.degraded_width_scale must be in (0,1], got %g", c.Sim.DegradedWidthScale)
	}
	if (c.Sim.TLELine1 == "") != (c.Sim.TLELine2 == "") {
		return fmt.Errorf("sim.tle_line1 and sim.tle_line2 must be set together")
	}
	if c.Store.StalenessWindow <= 0 {
		return fmt.Errorf("store.staleness_window must be positive, got %s", c.Store.StalenessWindow)
	}
	if c.Archive.Depth <= 0 {
		return fmt.Errorf("archive.depth must be positive, got %d", c.Archive.Depth)
	}
	return nil
}
