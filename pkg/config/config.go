// Package config loads and validates the engine's run configuration from a
// config.yml file. A .env file, when present, is loaded into the process
// environment for local development; no config field is read from the
// environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	Driver               string `yaml:"driver" validate:"required,oneof=postgres mongo"`
	ConnectionString     string `yaml:"connectionString" validate:"required"`
	ObservationTable     string `yaml:"observationTable"`
}

type GTFSConfig struct {
	Directory string `yaml:"directory"`
	ZipPath   string `yaml:"zipPath"`
}

type CacheConfig struct {
	Enabled        bool   `yaml:"enabled"`
	RedisAddr      string `yaml:"redisAddr" validate:"required_if=Enabled true"`
	TTLSeconds     int    `yaml:"ttlSeconds"`
}

type Config struct {
	BeginTime time.Time `yaml:"beginTime" validate:"required"`
	EndTime   time.Time `yaml:"endTime" validate:"required,gtfield=BeginTime"`
	Timezone  string    `yaml:"timezone" validate:"required"`

	GTFS       GTFSConfig   `yaml:"gtfs" validate:"required"`
	Source     SourceConfig `yaml:"source" validate:"required"`
	Cache      CacheConfig  `yaml:"cache"`

	PageSize        int     `yaml:"pageSize" validate:"gt=0"`
	WindowChunkDays int     `yaml:"windowChunkDays" validate:"gt=0"`

	AllowableDifferenceFromMeanSecs     int `yaml:"allowableDifferenceFromMeanSecs" validate:"gt=0"`
	AllowableDifferenceFromOriginalSecs int `yaml:"allowableDifferenceFromOriginalSecs" validate:"gt=0"`
	AllowableEarlySecs                  int `yaml:"allowableEarlySecs" validate:"gte=0"`
	AllowableLateSecs                   int `yaml:"allowableLateSecs" validate:"gte=0"`
	DesiredFractionEarly                float64 `yaml:"desiredFractionEarly" validate:"gte=0,lte=1"`
	PreserveFirstStopOfTrip             bool    `yaml:"preserveFirstStopOfTrip"`

	MetricsAddr   string `yaml:"metricsAddr"`
	NotifyURL     string `yaml:"notifyURL"`
	NotifySubject string `yaml:"notifySubject"`

	MongoReportSink string `yaml:"mongoReportSink"`

	Verbose bool `yaml:"verbose"`
}

// Load loads a .env file into the process environment if one exists, then
// reads path, unmarshals it as YAML, applies defaults, and validates every
// required field before returning. Environment variables are not expanded
// inside the file and do not override any field. PreserveFirstStopOfTrip
// defaults to true when the file does not set it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Config{PreserveFirstStopOfTrip: true}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.PageSize == 0 {
		cfg.PageSize = 500_000
	}
	if cfg.WindowChunkDays == 0 {
		cfg.WindowChunkDays = 1
	}
	if cfg.AllowableDifferenceFromMeanSecs == 0 {
		cfg.AllowableDifferenceFromMeanSecs = 600
	}
	if cfg.AllowableDifferenceFromOriginalSecs == 0 {
		cfg.AllowableDifferenceFromOriginalSecs = 600
	}
	if cfg.DesiredFractionEarly == 0 {
		cfg.DesiredFractionEarly = 0.2
	}
}

// Location resolves the configured timezone name into a *time.Location.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
