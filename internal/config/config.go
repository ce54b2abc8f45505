// Package config assembles server settings from defaults, an optional YAML
// file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"demeter/internal/attribute"
	"demeter/internal/util"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Snowflake  SnowflakeConfig  `yaml:"snowflake"`
	Log        LogConfig        `yaml:"log"`
	Attributes AttributesConfig `yaml:"attributes"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	StaticDir      string        `yaml:"static_dir"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// AuthRatePerMinute bounds login and register attempts per client IP.
	AuthRatePerMinute int `yaml:"auth_rate_per_minute"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	SecureCookies   bool          `yaml:"secure_cookies"`
}

type SnowflakeConfig struct {
	DatacenterID int64 `yaml:"datacenter_id"`
	MachineID    int64 `yaml:"machine_id"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AttributesConfig struct {
	Policy string `yaml:"policy"`
}

type JobsConfig struct {
	TokenCleanupInterval time.Duration `yaml:"token_cleanup_interval"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			StaticDir:         "web/dist",
			RequestTimeout:    30 * time.Second,
			AuthRatePerMinute: 20,
		},
		Database: DatabaseConfig{Path: "data/demeter.db"},
		Auth: AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Snowflake:  SnowflakeConfig{DatacenterID: 1, MachineID: 1},
		Log:        LogConfig{Level: "info"},
		Attributes: AttributesConfig{Policy: string(attribute.PolicyStrict)},
		Jobs:       JobsConfig{TokenCleanupInterval: time.Hour},
	}
}

// Load reads path (when not empty) over the defaults, then applies .env and
// environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = util.EnvOrDefault("DEMETER_ADDR", cfg.Server.Addr)
	cfg.Server.StaticDir = util.EnvOrDefault("DEMETER_STATIC_DIR", cfg.Server.StaticDir)
	if origins := os.Getenv("DEMETER_CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	cfg.Server.RequestTimeout = util.EnvDuration("DEMETER_REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Server.AuthRatePerMinute = int(util.EnvInt64("DEMETER_AUTH_RATE_PER_MINUTE", int64(cfg.Server.AuthRatePerMinute)))

	cfg.Database.Path = util.EnvOrDefault("DEMETER_DB_PATH", cfg.Database.Path)

	cfg.Auth.JWTSecret = util.EnvOrDefault("DEMETER_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AccessTokenTTL = util.EnvDuration("DEMETER_ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTL)
	cfg.Auth.RefreshTokenTTL = util.EnvDuration("DEMETER_REFRESH_TOKEN_TTL", cfg.Auth.RefreshTokenTTL)
	cfg.Auth.SecureCookies = util.EnvBool("DEMETER_SECURE_COOKIES", cfg.Auth.SecureCookies)

	cfg.Snowflake.DatacenterID = util.EnvInt64("DEMETER_DATACENTER_ID", cfg.Snowflake.DatacenterID)
	cfg.Snowflake.MachineID = util.EnvInt64("DEMETER_MACHINE_ID", cfg.Snowflake.MachineID)

	cfg.Log.Level = util.EnvOrDefault("DEMETER_LOG_LEVEL", cfg.Log.Level)
	cfg.Attributes.Policy = util.EnvOrDefault("DEMETER_ATTRIBUTE_POLICY", cfg.Attributes.Policy)
	cfg.Jobs.TokenCleanupInterval = util.EnvDuration("DEMETER_TOKEN_CLEANUP_INTERVAL", cfg.Jobs.TokenCleanupInterval)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (DEMETER_JWT_SECRET) is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path (DEMETER_DB_PATH) is required"))
	}
	if _, err := attribute.ParsePolicy(c.Attributes.Policy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Jobs.TokenCleanupInterval <= 0 {
		errs = append(errs, errors.New("jobs.token_cleanup_interval must be positive"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps the configured level name to a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return level, nil
}

// AttributePolicy returns the parsed task attribute write policy.
func (c Config) AttributePolicy() attribute.Policy {
	p, err := attribute.ParsePolicy(c.Attributes.Policy)
	if err != nil {
		return attribute.PolicyStrict
	}
	return p
}
