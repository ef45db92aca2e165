package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "/static/uploads", cfg.Upload.URLPrefix)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	body := `
server:
  addr: ":9090"
  base_path: "api/"
database:
  driver: SQLite
  dsn: "file:portal.db"
auth:
  secret: from-file
  token_ttl: 2h
budget:
  max: 5000000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("PORTAL_AUTH_SECRET", "from-env")
	t.Setenv("PORTAL_TOKEN_TTL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 5000000.0, cfg.Budget.Max)
	// untouched keys keep defaults
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestPGDSNSelectsPostgres(t *testing.T) {
	t.Setenv("PORTAL_PG_DSN", "postgres://portal@localhost/portal")
	t.Setenv("PORTAL_AUTH_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://portal@localhost/portal", cfg.Database.DSN)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown driver":       func(c *Config) { c.Database.Driver = "mongo" },
		"postgres without dsn": func(c *Config) { c.Database.Driver = DriverPostgres; c.Auth.Secret = "x" },
		"sqlite without secret": func(c *Config) {
			c.Database.Driver = DriverSQLite
			c.Database.DSN = "portal.db"
		},
		"negative budget":  func(c *Config) { c.Budget.Min = -1 },
		"inverted budget":  func(c *Config) { c.Budget.Min = 10; c.Budget.Max = 5 },
		"zero rate":        func(c *Config) { c.RateLimit.PerSecond = 0 },
		"fast gauge job":   func(c *Config) { c.Jobs.GaugeInterval = time.Millisecond },
		"non-positive ttl": func(c *Config) { c.Auth.TokenTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
