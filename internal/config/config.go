package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized alongside the config file.
const (
	EnvConfigPath      = "CONFIG_PATH"
	EnvDBConnection    = "DB_CONNECTION"
	EnvPort            = "PORT"
	EnvIDPIssuer       = "IDP_ISSUER"
	EnvIDPAudience     = "IDP_AUDIENCE"
	EnvIDPJWKSURL      = "IDP_JWKS_URL"
	EnvIDPSharedSecret = "IDP_SHARED_SECRET"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvRedisPassword   = "REDIS_PASSWORD"
	EnvCORSOrigins     = "CORS_ORIGINS"
)

// Defaults applied when the file and environment leave values unset.
const (
	DefaultPort            = 8318
	DefaultRateLimitWindow = time.Minute
	DefaultAnonymousLimit  = 30
	DefaultUserLimit       = 120
	DefaultAdminLimit      = 600
	DefaultRedisPrefix     = "motivo:rl"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors-origins"`
}

// DatabaseConfig holds the database connection string.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// IDPConfig holds external identity provider verification settings.
// SharedSecret switches verification to HS256 for development and tests;
// production deployments set Issuer/Audience/JWKSURL instead.
type IDPConfig struct {
	Issuer       string `yaml:"issuer"`
	Audience     string `yaml:"audience"`
	JWKSURL      string `yaml:"jwks-url"`
	SharedSecret string `yaml:"shared-secret"`
}

// RedisConfig holds the shared rate-limit counter store settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig holds fixed-window thresholds per role tier.
type RateLimitConfig struct {
	Window    time.Duration `yaml:"window"`
	Anonymous int           `yaml:"anonymous"`
	User      int           `yaml:"user"`
	Admin     int           `yaml:"admin"`
	Redis     RedisConfig   `yaml:"redis"`
}

// AppConfig is the resolved application configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	IDP       IDPConfig       `yaml:"idp"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file (when present), layers environment
// overrides on top, and applies defaults. A missing file is not an error;
// a missing DSN is.
func Load(configPath string) (AppConfig, error) {
	var cfg AppConfig

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return AppConfig{}, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return AppConfig{}, fmt.Errorf("missing database dsn (set `database.dsn` or env %s)", EnvDBConnection)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if rawPort := strings.TrimSpace(os.Getenv(EnvPort)); rawPort != "" {
		if port, errParse := strconv.Atoi(rawPort); errParse == nil && port > 0 && port <= 65535 {
			cfg.Server.Port = port
		}
	}
	if issuer := strings.TrimSpace(os.Getenv(EnvIDPIssuer)); issuer != "" {
		cfg.IDP.Issuer = issuer
	}
	if audience := strings.TrimSpace(os.Getenv(EnvIDPAudience)); audience != "" {
		cfg.IDP.Audience = audience
	}
	if jwksURL := strings.TrimSpace(os.Getenv(EnvIDPJWKSURL)); jwksURL != "" {
		cfg.IDP.JWKSURL = jwksURL
	}
	if secret := strings.TrimSpace(os.Getenv(EnvIDPSharedSecret)); secret != "" {
		cfg.IDP.SharedSecret = secret
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.RateLimit.Redis.Addr = addr
		cfg.RateLimit.Redis.Enabled = true
	}
	if password := strings.TrimSpace(os.Getenv(EnvRedisPassword)); password != "" {
		cfg.RateLimit.Redis.Password = password
	}
	if origins := strings.TrimSpace(os.Getenv(EnvCORSOrigins)); origins != "" {
		parts := strings.Split(origins, ",")
		cleaned := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			cfg.Server.CORSOrigins = cleaned
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}
	if cfg.RateLimit.Anonymous <= 0 {
		cfg.RateLimit.Anonymous = DefaultAnonymousLimit
	}
	if cfg.RateLimit.User <= 0 {
		cfg.RateLimit.User = DefaultUserLimit
	}
	if cfg.RateLimit.Admin <= 0 {
		cfg.RateLimit.Admin = DefaultAdminLimit
	}
	if strings.TrimSpace(cfg.RateLimit.Redis.Prefix) == "" {
		cfg.RateLimit.Redis.Prefix = DefaultRedisPrefix
	}
	if cfg.RateLimit.Redis.DB < 0 {
		cfg.RateLimit.Redis.DB = 0
	}
}
