package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config.yaml"

	ReviewPolicyRetain  = "retain"
	ReviewPolicyRetract = "retract"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig holds the SQLite location and pool settings.
type DatabaseConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	LogLevel     string `yaml:"log_level"`
}

// AuthConfig holds the JWT signing parameters.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	Audience  string        `yaml:"audience"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// AllocationConfig tunes the assignment engine.
type AllocationConfig struct {
	// ReviewPolicy decides what happens to reviews when a completed task is
	// toggled back to incomplete: "retain" or "retract".
	ReviewPolicy      string        `yaml:"review_policy"`
	TechStackCacheTTL time.Duration `yaml:"techstack_cache_ttl"`
}

// Config models config.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Allocation AllocationConfig `yaml:"allocation"`
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8008"},
		Database: DatabaseConfig{
			Path:         "capacity-planner.db",
			MaxOpenConns: 1,
			LogLevel:     "warn",
		},
		Auth: AuthConfig{
			JWTSecret: "development-insecure-secret-change-me",
			Issuer:    "capacity-planner-api",
			Audience:  "capacity-planner-clients",
			TokenTTL:  24 * time.Hour,
		},
		Allocation: AllocationConfig{
			ReviewPolicy:      ReviewPolicyRetain,
			TechStackCacheTTL: 10 * time.Minute,
		},
	}
}

// Load reads the YAML file at path (a missing file is not an error) and
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("config: server.port is required")
	}
	if c.Database.Path == "" {
		return errors.New("config: database.path is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("config: database.max_open_conns must be >= 1, got %d", c.Database.MaxOpenConns)
	}
	switch c.Allocation.ReviewPolicy {
	case ReviewPolicyRetain, ReviewPolicyRetract:
	default:
		return fmt.Errorf("config: unknown allocation.review_policy %q", c.Allocation.ReviewPolicy)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Port = getEnv("APP_PORT", cfg.Server.Port)
	cfg.Database.Path = getEnv("DATABASE_PATH", cfg.Database.Path)
	cfg.Database.LogLevel = getEnv("DATABASE_LOG_LEVEL", cfg.Database.LogLevel)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Audience = getEnv("JWT_AUDIENCE", cfg.Auth.Audience)
	cfg.Allocation.ReviewPolicy = getEnv("REVIEW_POLICY", cfg.Allocation.ReviewPolicy)

	if v := os.Getenv("DATABASE_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DATABASE_MAX_OPEN_CONNS: %w", err)
		}
		cfg.Database.MaxOpenConns = n
	}
	if v := os.Getenv("TECHSTACK_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: TECHSTACK_CACHE_TTL: %w", err)
		}
		cfg.Allocation.TechStackCacheTTL = d
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
