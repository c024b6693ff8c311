package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`
	Sweep struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"sweep"`
	APIKey  string   `yaml:"apiKey" env:"TEST_API_KEY"`
	Regions []string `yaml:"regions"`
	Limit   int      `yaml:"limit"`
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("http:\n  port: \"9090\"\nsweep:\n  interval: 2m\nregions:\n  - athens\n  - thessaloniki\nlimit: 10\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TEST_API_KEY", "from-env")
	t.Setenv("HTTP_PORT", "8081")

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Port != "8081" {
		t.Errorf("expected env override for port, got %q", cfg.HTTP.Port)
	}
	if cfg.Sweep.Interval != 2*time.Minute {
		t.Errorf("expected 2m interval, got %s", cfg.Sweep.Interval)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("expected api key from env, got %q", cfg.APIKey)
	}
	if len(cfg.Regions) != 2 || cfg.Regions[0] != "athens" {
		t.Errorf("unexpected regions: %v", cfg.Regions)
	}
	if cfg.Limit != 10 {
		t.Errorf("expected limit 10, got %d", cfg.Limit)
	}
}

func TestLoadDurationFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SWEEP_INTERVAL", "45s")

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sweep.Interval != 45*time.Second {
		t.Errorf("expected 45s, got %s", cfg.Sweep.Interval)
	}
}

func TestLoadRejectsNonPointer(t *testing.T) {
	if err := Load(testConfig{}); err == nil {
		t.Fatal("expected error for non-pointer target")
	}
	if err := Load(nil); err == nil {
		t.Fatal("expected error for nil target")
	}
}
