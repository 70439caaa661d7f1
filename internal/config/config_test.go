package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.N < 2 {
		t.Errorf("default n too small: %d", cfg.N)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Method != "gd" {
		t.Errorf("expected method gd, got %s", cfg.Method)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"small n", func(c *Config) { c.N = 1 }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"zero steps", func(c *Config) { c.Steps = 0 }},
		{"negative rate", func(c *Config) { c.Rate = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.N = 12
	cfg.Method = "adam"
	cfg.Rate = 0.05
	cfg.Physics.Emissivity = 0.65

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.N != 12 || loaded.Method != "adam" || loaded.Rate != 0.05 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if loaded.Physics.Emissivity != 0.65 {
		t.Errorf("round trip lost physics: %+v", loaded.Physics)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("n: 8\nmethod: momentum\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.N != 8 || cfg.Method != "momentum" {
		t.Errorf("explicit fields not applied: %+v", cfg)
	}
	if cfg.Dt != DefaultDt || cfg.Steps != DefaultSteps {
		t.Errorf("defaults not kept for omitted fields: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("n: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid config")
	}
}
