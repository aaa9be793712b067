// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value read from the YAML file can be overridden by the environment
// variable named in its env:"..." tag.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers understood by the storage factory in main.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Validation modes. "field" reports the student limit against the
// students field, "object" reports it as a non-field error.
const (
	ValidationModeField  = "field"
	ValidationModeObject = "object"
)

// Config is the root configuration structure.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StoragePath is the filesystem path to the SQLite .db file.
	// Only required when Database.Driver is "sqlite".
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH"`

	HTTPServer `yaml:"http_server"`
	Database   Database `yaml:"database"`
	Courses    Courses  `yaml:"courses"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Addr         string        `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Database selects and configures the storage backend.
type Database struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	MaxConns    int32  `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
}

// Courses holds the course business rules.
type Courses struct {
	MaxStudentsPerCourse int    `yaml:"max_students_per_course" env:"MAX_STUDENTS_PER_COURSE" env-default:"20"`
	ValidationMode       string `yaml:"validation_mode" env:"VALIDATION_MODE" env-default:"field"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and checks the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad resolves the config path from CONFIG_PATH or --config and
// exits the process if the config cannot be loaded.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.StoragePath == "" {
			return errors.New("storage_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return errors.New("database.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Courses.MaxStudentsPerCourse < 0 {
		return fmt.Errorf("max_students_per_course must not be negative, got %d", c.Courses.MaxStudentsPerCourse)
	}

	switch c.Courses.ValidationMode {
	case ValidationModeField, ValidationModeObject:
	default:
		return fmt.Errorf("unknown validation mode %q", c.Courses.ValidationMode)
	}

	return nil
}
