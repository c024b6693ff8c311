package config

import (
	"fmt"
	"time"

	"github.com/KostasPapadooo/ev-charging-app/libs/config"
)

// Region is a geographic area the batch sweep reconciles on its own cadence.
type Region struct {
	Name         string        `yaml:"name"`
	Latitude     float64       `yaml:"latitude"`
	Longitude    float64       `yaml:"longitude"`
	RadiusMeters int           `yaml:"radius_meters"`
	Interval     config.Duration `yaml:"interval"`
}

type HTTPConfig struct {
	Port string `yaml:"port" env:"HTTP_PORT"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type TomTomConfig struct {
	SearchAPIKey string        `yaml:"search_api_key" env:"TOMTOM_SEARCH_API_KEY"`
	EVAPIKey     string        `yaml:"ev_api_key" env:"TOMTOM_EV_API_KEY"`
	BaseURL      string        `yaml:"base_url" env:"TOMTOM_BASE_URL"`
	Timeout      config.Duration `yaml:"timeout" env:"TOMTOM_TIMEOUT"`
}

type SearchConfig struct {
	// MinLocalResults is the threshold below which a nearby search falls
	// through to the provider for enrichment.
	MinLocalResults     int `yaml:"min_local_results" env:"SEARCH_MIN_LOCAL_RESULTS"`
	DefaultRadiusMeters int `yaml:"default_radius_meters" env:"SEARCH_DEFAULT_RADIUS_METERS"`
	MaxResults          int `yaml:"max_results" env:"SEARCH_MAX_RESULTS"`
}

type SweepConfig struct {
	SpeedInterval config.Duration `yaml:"speed_interval" env:"SWEEP_SPEED_INTERVAL"`
	Regions       []Region      `yaml:"regions"`
}

type RetentionConfig struct {
	HistoryDays     int           `yaml:"history_days" env:"RETENTION_HISTORY_DAYS"`
	CacheMaxAge     config.Duration `yaml:"cache_max_age" env:"RETENTION_CACHE_MAX_AGE"`
	CleanupInterval config.Duration `yaml:"cleanup_interval" env:"RETENTION_CLEANUP_INTERVAL"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	TomTom    TomTomConfig    `yaml:"tomtom"`
	Search    SearchConfig    `yaml:"search"`
	Sweeps    SweepConfig     `yaml:"sweeps"`
	Retention RetentionConfig `yaml:"retention"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTP:  HTTPConfig{Port: "8080"},
		Redis: RedisConfig{Addr: "localhost:6379"},
		TomTom: TomTomConfig{
			Timeout: config.Duration(30 * time.Second),
		},
		Search: SearchConfig{
			MinLocalResults:     5,
			DefaultRadiusMeters: 5000,
			MaxResults:          100,
		},
		Sweeps: SweepConfig{
			SpeedInterval: config.Duration(2 * time.Minute),
		},
		Retention: RetentionConfig{
			HistoryDays:     30,
			CacheMaxAge:     config.Duration(24 * time.Hour),
			CleanupInterval: config.Duration(time.Hour),
		},
		SMTP: SMTPConfig{Port: 587},
	}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.TomTom.SearchAPIKey == "" {
		return fmt.Errorf("tomtom.search_api_key is required")
	}
	if c.TomTom.EVAPIKey == "" {
		c.TomTom.EVAPIKey = c.TomTom.SearchAPIKey
	}
	if c.Sweeps.SpeedInterval <= 0 {
		return fmt.Errorf("sweeps.speed_interval must be positive")
	}
	for i, r := range c.Sweeps.Regions {
		if r.Name == "" {
			return fmt.Errorf("sweeps.regions[%d].name is required", i)
		}
		if r.RadiusMeters <= 0 {
			return fmt.Errorf("sweeps.regions[%d].radius_meters must be positive", i)
		}
		if r.Interval <= 0 {
			return fmt.Errorf("sweeps.regions[%d].interval must be positive", i)
		}
	}
	return nil
}

// HTTPAddress returns the listen address for the API server.
func (c *Config) HTTPAddress() string {
	return ":" + c.HTTP.Port
}
