package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Sim.Tick.Std() != time.Second {
		t.Fatalf("tick = %s, want default 1s", cfg.Sim.Tick)
	}
	if cfg.Sim.APIDBase != 100 {
		t.Fatalf("apid base = %d, want 100", cfg.Sim.APIDBase)
	}
	if cfg.Downlink.Address == "" || cfg.Uplink.Listen == "" {
		t.Fatalf("endpoint defaults missing: %+v", cfg)
	}
	if cfg.Sim.TLELine1 == "" || cfg.Sim.TLELine2 == "" {
		t.Fatalf("TLE defaults missing")
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	data := []byte("sim:\n  tick: 250ms\n  apid_base: 200\ndownlink:\n  address: \"10.0.0.5:6000\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Sim.Tick.Std() != 250*time.Millisecond {
		t.Fatalf("tick = %s, want 250ms", cfg.Sim.Tick)
	}
	if cfg.Sim.APIDBase != 200 {
		t.Fatalf("apid base = %d, want 200", cfg.Sim.APIDBase)
	}
	if cfg.Downlink.Address != "10.0.0.5:6000" {
		t.Fatalf("downlink = %q", cfg.Downlink.Address)
	}
	// Untouched sections keep their defaults.
	if cfg.Store.StalenessWindow.Std() != 5*time.Second {
		t.Fatalf("staleness window = %s, want default 5s", cfg.Store.StalenessWindow)
	}
	if cfg.Archive.Depth != 1024 {
		t.Fatalf("archive depth = %d, want default 1024", cfg.Archive.Depth)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick", func(c *Config) { c.Sim.Tick = 0 }},
		{"apid overflow", func(c *Config) { c.Sim.APIDBase = 0x7FF }},
		{"shift out of range", func(c *Config) { c.Sim.DegradedShift = 1.5 }},
		{"width scale zero", func(c *Config) { c.Sim.DegradedWidthScale = 0; c.Sim.DegradedShift = 0.25 }},
		{"lone TLE line", func(c *Config) { c.Sim.TLELine2 = "" }},
		{"empty downlink", func(c *Config) { c.Downlink.Address = "" }},
		{"zero archive depth", func(c *Config) { c.Archive.Depth = 0 }},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
