package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cityinit.org/internal/obs"
)

// Config is the full runtime configuration of the portal API.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       obs.LogConfig   `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Upload    UploadConfig    `yaml:"upload"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Budget    BudgetConfig    `yaml:"budget"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	BasePath       string        `yaml:"base_path"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // memory | postgres | sqlite
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type RateLimitConfig struct {
	Burst     int `yaml:"burst"`
	PerSecond int `yaml:"per_second"`
}

type UploadConfig struct {
	Dir       string `yaml:"dir"`
	URLPrefix string `yaml:"url_prefix"`
	MaxBytes  int64  `yaml:"max_bytes"`
}

type JobsConfig struct {
	GaugeInterval time.Duration `yaml:"gauge_interval"`
}

// BudgetConfig bounds estimate totals. Zero disables a bound.
type BudgetConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Default returns the configuration used when no file or env overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Database:  DatabaseConfig{Driver: DriverMemory},
		Auth:      AuthConfig{TokenTTL: 24 * time.Hour},
		Log:       obs.LogConfig{Level: "info", Output: "stdout", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		RateLimit: RateLimitConfig{Burst: 40, PerSecond: 20},
		Upload: UploadConfig{
			Dir:       "static/uploads",
			URLPrefix: "/static/uploads",
			MaxBytes:  10 << 20,
		},
		Jobs: JobsConfig{GaugeInterval: time.Minute},
	}
}

// Load reads path (optional) on top of Default, then applies PORTAL_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORTAL_ADDR", &c.Server.Addr)
	str("PORTAL_BASE_PATH", &c.Server.BasePath)
	str("PORTAL_GRPC_ADDR", &c.GRPC.Addr)
	str("PORTAL_DB_DRIVER", &c.Database.Driver)
	str("PORTAL_DB_DSN", &c.Database.DSN)
	if v := strings.TrimSpace(getenv("PORTAL_PG_DSN")); v != "" {
		c.Database.DSN = v
		if c.Database.Driver == DriverMemory {
			c.Database.Driver = DriverPostgres
		}
	}
	str("PORTAL_AUTH_SECRET", &c.Auth.Secret)
	str("PORTAL_LOG_LEVEL", &c.Log.Level)
	str("PORTAL_UPLOAD_DIR", &c.Upload.Dir)

	if v := strings.TrimSpace(getenv("PORTAL_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PORTAL_TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	if v := strings.TrimSpace(getenv("PORTAL_BUDGET_MAX")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PORTAL_BUDGET_MAX: %w", err)
		}
		c.Budget.Max = f
	}
	return nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	bp := strings.TrimSpace(c.Server.BasePath)
	if bp != "" {
		bp = "/" + strings.Trim(bp, "/")
		if bp == "/" {
			bp = ""
		}
	}
	c.Server.BasePath = bp
	c.Upload.URLPrefix = "/" + strings.Trim(c.Upload.URLPrefix, "/")
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
		if strings.TrimSpace(c.Auth.Secret) == "" {
			return errors.New("auth.secret is required with a persistent database")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.RateLimit.Burst <= 0 || c.RateLimit.PerSecond <= 0 {
		return errors.New("rate_limit.burst and rate_limit.per_second must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 || c.Upload.MaxBytes <= 0 {
		return errors.New("body limits must be positive")
	}
	if c.Budget.Min < 0 || c.Budget.Max < 0 {
		return errors.New("budget bounds must be >= 0")
	}
	if c.Budget.Max > 0 && c.Budget.Min > c.Budget.Max {
		return errors.New("budget.min exceeds budget.max")
	}
	if c.Jobs.GaugeInterval < time.Second {
		return errors.New("jobs.gauge_interval must be at least 1s")
	}
	return nil
}
