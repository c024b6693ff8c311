package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadAppliesDefaultsAndRegions(t *testing.T) {
	writeConfigFile(t, `
database:
  dsn: postgres://localhost/stations
tomtom:
  search_api_key: key-123
sweeps:
  regions:
    - name: athens
      latitude: 37.9838
      longitude: 23.7275
      radius_meters: 50000
      interval: 30m
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.HTTP.Port)
	}
	if cfg.Search.MinLocalResults != 5 {
		t.Errorf("default min_local_results = %d, want 5", cfg.Search.MinLocalResults)
	}
	if cfg.TomTom.EVAPIKey != "key-123" {
		t.Errorf("ev api key should fall back to search key, got %q", cfg.TomTom.EVAPIKey)
	}
	if len(cfg.Sweeps.Regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(cfg.Sweeps.Regions))
	}
	region := cfg.Sweeps.Regions[0]
	if region.Name != "athens" || region.Interval.Std() != 30*time.Minute {
		t.Errorf("unexpected region: %+v", region)
	}
}

func TestLoadRejectsMissingDSN(t *testing.T) {
	writeConfigFile(t, `
tomtom:
  search_api_key: key-123
`)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing database dsn")
	}
}

func TestLoadRejectsInvalidRegion(t *testing.T) {
	writeConfigFile(t, `
database:
  dsn: postgres://localhost/stations
tomtom:
  search_api_key: key-123
sweeps:
  regions:
    - name: athens
      radius_meters: 0
      interval: 30m
`)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive region radius")
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	writeConfigFile(t, `
database:
  dsn: postgres://localhost/stations
tomtom:
  search_api_key: key-123
`)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SWEEP_SPEED_INTERVAL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.HTTP.Port)
	}
	if cfg.Sweeps.SpeedInterval.Std() != 45*time.Second {
		t.Errorf("speed interval = %v, want 45s", cfg.Sweeps.SpeedInterval)
	}
	if cfg.HTTPAddress() != ":9090" {
		t.Errorf("address = %q, want :9090", cfg.HTTPAddress())
	}
}
