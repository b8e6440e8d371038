// Package config loads service configuration from YAML and environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Keekuun/nexus-studio-sub001/internal/storage"
)

// Environments.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// DefaultPath is tried when neither an explicit path nor CONFIG_PATH is given.
const DefaultPath = "config.yaml"

// Config is the root configuration.
// Sources, in priority order:
//  1. the path passed to Load;
//  2. the CONFIG_PATH environment variable;
//  3. ./config.yaml;
//  4. environment variables only.
//
// Environment variables always overlay values read from a file.
type Config struct {
	Env      string         `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Comments CommentsConfig `yaml:"comments"`
	SSE      SSEConfig      `yaml:"sse"`
	Log      LogConfig      `yaml:"log"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Host              string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port              string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	CORSOrigin        string        `yaml:"cors_origin" env:"HTTP_CORS_ORIGIN" env-default:"*"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// StorageConfig selects the comment store backend.
type StorageConfig struct {
	Driver   string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"`
	Path     string `yaml:"path" env:"STORAGE_PATH" env-default:"data/comments.json"`
	DSN      string `yaml:"dsn" env:"STORAGE_DSN" env-default:"data/comments.db"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

// Options converts the section into storage.Options.
func (s StorageConfig) Options() storage.Options {
	return storage.Options{
		Driver:   s.Driver,
		Path:     s.Path,
		DSN:      s.DSN,
		RedisURL: s.RedisURL,
	}
}

// CommentsConfig controls the comment service policy.
type CommentsConfig struct {
	// StrictReads fails list requests when the store cannot be read.
	// When false an unreadable store is served as empty.
	StrictReads bool `yaml:"strict_reads" env:"COMMENTS_STRICT_READS"`
	// DegradeWrites reports success for a comment whose write failed.
	DegradeWrites bool `yaml:"degrade_writes" env:"COMMENTS_DEGRADE_WRITES"`
	// QueueSize is the writer queue capacity.
	QueueSize int `yaml:"queue_size" env:"COMMENTS_QUEUE_SIZE" env-default:"64"`
}

// SSEConfig configures the heartbeat stream.
type SSEConfig struct {
	Interval time.Duration `yaml:"interval" env:"SSE_INTERVAL" env-default:"15s"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Load reads the configuration by the priority documented on Config.
func Load(path string) (*Config, error) {
	var cfg Config

	switch {
	case path != "":
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH"), &cfg); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat(DefaultPath); err == nil {
			if err := readFile(DefaultPath, &cfg); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %q stat failed: %w", path, err)
	}

	// ReadConfig overlays the environment on top of the file.
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	return nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("env must be one of local, dev, prod; got %q", c.Env)
	}

	if c.HTTP.Port == "" {
		return errors.New("http.port is required")
	}

	switch c.Storage.Driver {
	case storage.DriverFile:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the file driver")
		}
	case storage.DriverSQLite:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the sqlite driver")
		}
	case storage.DriverRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis driver")
		}
	case storage.DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}

	if c.Comments.QueueSize <= 0 {
		return errors.New("comments.queue_size must be > 0")
	}

	if c.SSE.Interval <= 0 {
		return errors.New("sse.interval must be > 0")
	}

	return nil
}
