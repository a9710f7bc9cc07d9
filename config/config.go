// Package config loads the dataprovider configuration file.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/morikuni/failure/v2"
	"gopkg.in/yaml.v3"
)

// ErrorCode defines error types for configuration loading
type ErrorCode string

const (
	// ErrInvalidConfig is returned for unreadable or invalid configuration
	ErrInvalidConfig ErrorCode = "InvalidConfig"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Environment variables read by Load
const (
	EnvConfig    = "DATAPROVIDER_CONFIG"
	EnvRedisAddr = "DATAPROVIDER_REDIS_ADDR"
)

// DefaultFile is read when no path is given and EnvConfig is unset
const DefaultFile = "dataprovider.yml"

// Cache backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config is the configuration of the dataprovider command
type Config struct {
	// ResourcesDir holds one descriptor per *.yml file
	ResourcesDir string `yaml:"resources_dir" validate:"required"`

	// EntitiesFile optionally describes the entities cache tags refer to
	EntitiesFile string `yaml:"entities_file"`

	// BaseURL resolves "internal" URLs of the HTTP request fetcher
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	ErrorPolicy string `yaml:"error_policy" validate:"oneof=log propagate"`
	Dedupe      bool   `yaml:"dedupe"`
	UseCaches   bool   `yaml:"use_caches"`

	Cache  Cache  `yaml:"cache"`
	Server Server `yaml:"server"`
}

// Cache selects and configures the cache backend
type Cache struct {
	Backend   string `yaml:"backend" validate:"oneof=memory file redis none"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int    `yaml:"redis_db" validate:"gte=0"`
}

// Server configures the HTTP delivery surface
type Server struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the configuration used for missing keys
func Default() *Config {
	return &Config{
		ResourcesDir: "resources",
		ErrorPolicy:  "log",
		UseCaches:    true,
		Cache: Cache{
			Backend:   BackendMemory,
			RedisAddr: "localhost:6379",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load reads the configuration file at path. An empty path falls back to
// $DATAPROVIDER_CONFIG and then to DefaultFile; a missing default file
// yields Default(). Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return nil, failure.New(ErrInvalidConfig,
			failure.Message("Failed to read configuration file"),
			failure.Context{"path": path, "error": err.Error()},
		)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, failure.New(ErrInvalidConfig,
				failure.Message("Failed to parse configuration file"),
				failure.Context{"path": path, "error": err.Error()},
			)
		}
	}

	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		cfg.Cache.RedisAddr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return failure.New(ErrInvalidConfig,
			failure.Message("Invalid configuration"),
			failure.Context{"error": err.Error()},
		)
	}
	return nil
}
