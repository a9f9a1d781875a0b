package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Checking.Strategy != "O1" {
		t.Errorf("Strategy = %q, want %q", cfg.Checking.Strategy, "O1")
	}
	if !cfg.Checking.WarnDeprecated {
		t.Error("WarnDeprecated should be on by default")
	}
	if !cfg.Cache.Persist {
		t.Error("Cache.Persist should be on by default")
	}
	if cfg.Logging.Format != "human" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "human")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("missing config should fall back to defaults, Version = %d", cfg.Version)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Checking.Strategy = "O0"
	cfg.Checking.WarnDeprecated = false
	cfg.Registry.DeclFiles = []string{"types.yaml"}
	cfg.Logging.Level = "debug"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".hintcheck", "config.json")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Checking.Strategy != "O0" {
		t.Errorf("Strategy = %q, want %q", loaded.Checking.Strategy, "O0")
	}
	if loaded.Checking.WarnDeprecated {
		t.Error("WarnDeprecated should round-trip as false")
	}
	if len(loaded.Registry.DeclFiles) != 1 || loaded.Registry.DeclFiles[0] != "types.yaml" {
		t.Errorf("DeclFiles = %v, want [types.yaml]", loaded.Registry.DeclFiles)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", loaded.Logging.Level, "debug")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(c *Config) {}, false},
		{"bad version", func(c *Config) { c.Version = 2 }, true},
		{"bad strategy", func(c *Config) { c.Checking.Strategy = "O9" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"shallow strategy ok", func(c *Config) { c.Checking.Strategy = "O0" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
