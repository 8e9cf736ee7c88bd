package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/vessel-tracks/internal/analysis/foundation"
	"github.com/jengzang/vessel-tracks/internal/models"
)

// ErrInvalidDateRange is returned when begin falls after end
var ErrInvalidDateRange = errors.New("invalid date range")

// Config 应用配置
type Config struct {
	Region      RegionConfig  `yaml:"region"`
	Begin       string        `yaml:"begin" validate:"required,datetime=2006-01-02"`
	End         string        `yaml:"end" validate:"required,datetime=2006-01-02"`
	MaxSpeedKph float64       `yaml:"max_speed_kph" validate:"gt=0"`
	Paths       PathsConfig   `yaml:"paths"`
	Workers     int           `yaml:"workers" validate:"gte=1"`
	DayTimeout  time.Duration `yaml:"day_timeout" validate:"gte=0"`
	Analytics   []string      `yaml:"analytics" validate:"dive,oneof=speed_distribution proximity hourly_interpolation"`
	Server      ServerConfig  `yaml:"server"`
}

// RegionConfig is the study area; bounds are inclusive degrees
type RegionConfig struct {
	Name string  `yaml:"name" validate:"required"`
	ID   int     `yaml:"id" validate:"gte=0"`
	Lon1 float64 `yaml:"lon1" validate:"gte=-180,lte=180"`
	Lon2 float64 `yaml:"lon2" validate:"gte=-180,lte=180,gtefield=Lon1"`
	Lat1 float64 `yaml:"lat1" validate:"gte=-90,lte=90"`
	Lat2 float64 `yaml:"lat2" validate:"gte=-90,lte=90,gtefield=Lat1"`
}

// PathsConfig holds the input and output directories
type PathsConfig struct {
	RawDir        string `yaml:"raw_dir" validate:"required"`
	CSVOutDir     string `yaml:"csv_out_dir" validate:"required"`
	FeatherOutDir string `yaml:"feather_out_dir" validate:"required"`
	AggregateDir  string `yaml:"aggregate_dir" validate:"required"`
}

// ServerConfig configures the HTTP API and the run ledger
type ServerConfig struct {
	Port      string `yaml:"port" validate:"required"`
	DBPath    string `yaml:"db_path" validate:"required"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns a configuration with every optional field filled in
func Default() *Config {
	return &Config{
		MaxSpeedKph: foundation.DefaultMaxSpeedKph,
		Workers:     runtime.NumCPU(),
		DayTimeout:  10 * time.Minute,
		Analytics:   []string{"speed_distribution", "proximity", "hourly_interpolation"},
		Paths: PathsConfig{
			CSVOutDir:     "./output/csv",
			FeatherOutDir: "./output/feather",
			AggregateDir:  "./output/aggregate",
		},
		Server: ServerConfig{
			Port:      ":8080",
			DBPath:    "./data/runs.db",
			JWTSecret: "your-secret-key-change-in-production",
		},
	}
}

// Load 加载配置: YAML file over defaults, then environment overrides, then validation
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		c.Server.DBPath = dbPath
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Server.JWTSecret = secret
	}
	if workers := os.Getenv("VESSEL_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid VESSEL_WORKERS %q: %w", workers, err)
		}
		c.Workers = n
	}
	if speed := os.Getenv("VESSEL_MAX_SPEED"); speed != "" {
		v, err := strconv.ParseFloat(speed, 64)
		if err != nil {
			return fmt.Errorf("invalid VESSEL_MAX_SPEED %q: %w", speed, err)
		}
		c.MaxSpeedKph = v
	}
	return nil
}

// Validate checks struct tags and the date range
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	begin, end, err := c.DateRange()
	if err != nil {
		return err
	}
	if begin.After(end) {
		return fmt.Errorf("%w: begin %s is after end %s", ErrInvalidDateRange, c.Begin, c.End)
	}
	return nil
}

// Bounds returns the region's bounding box
func (c *Config) Bounds() models.BoundingBox {
	return models.BoundingBox{
		Lon1: c.Region.Lon1,
		Lon2: c.Region.Lon2,
		Lat1: c.Region.Lat1,
		Lat2: c.Region.Lat2,
	}
}

// DateRange parses begin and end as UTC days
func (c *Config) DateRange() (time.Time, time.Time, error) {
	begin, err := time.Parse(models.DayLayout, c.Begin)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: begin %q", ErrInvalidDateRange, c.Begin)
	}
	end, err := time.Parse(models.DayLayout, c.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", ErrInvalidDateRange, c.End)
	}
	return begin, end, nil
}

// Days lists every calendar day in [begin,end]
func (c *Config) Days() ([]time.Time, error) {
	begin, end, err := c.DateRange()
	if err != nil {
		return nil, err
	}
	return DaysBetween(begin, end)
}

// DaysBetween lists every calendar day from begin to end inclusive
func DaysBetween(begin, end time.Time) ([]time.Time, error) {
	if begin.After(end) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidDateRange,
			begin.Format(models.DayLayout), end.Format(models.DayLayout))
	}
	var days []time.Time
	for d := begin; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}
