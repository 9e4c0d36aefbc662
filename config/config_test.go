package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/labor-engine/config"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const postgresYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"

database:
  driver: "postgres"
  dsn: "postgres://u:p@localhost:5432/labor"
  max_conns: 10
  min_conns: 2

log:
  level: "debug"
  format: "text"

engine:
  timezone: "America/Los_Angeles"
  default_state: "ca"
  consecutive_lookback_days: 14
`

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	// GIVEN: No CONFIG_PATH and no ./config.yaml
	// WHEN: Loading
	// THEN: Defaults apply and derived fields are resolved

	t.Setenv("CONFIG_PATH", "")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "labor.db", cfg.Database.Path)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, time.UTC, cfg.Engine.Location)
	assert.Equal(t, 30, cfg.Engine.ConsecutiveLookbackDays)
	assert.Empty(t, cfg.Engine.DefaultState)
	assert.True(t, cfg.Engine.Epoch.Equal(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	// GIVEN: A YAML file and an ENV override for the port
	// WHEN: Loading
	// THEN: ENV wins over YAML, YAML wins over defaults

	t.Setenv("CONFIG_PATH", writeYAML(t, postgresYAML))
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "default kept")
	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.Database.MaxConnLifetime)
	assert.Equal(t, "America/Los_Angeles", cfg.Engine.Location.String())
	assert.Equal(t, "CA", cfg.Engine.DefaultState)
	assert.Equal(t, 14, cfg.Engine.ConsecutiveLookbackDays)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := config.Load()

	assert.Error(t, err)
}

func valid() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		Log:      config.LogConfig{Level: "info", Format: "json"},
		Engine:   config.EngineConfig{Timezone: "UTC", ConsecutiveLookbackDays: 30, PolicyEpoch: "2020-01-01"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		ok     bool
	}{
		{"valid", func(*config.Config) {}, true},
		{"driver is case-insensitive", func(c *config.Config) { c.Database.Driver = " SQLite " }, true},
		{"bad port", func(c *config.Config) { c.Server.Port = 0 }, false},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, false},
		{"sqlite without path", func(c *config.Config) { c.Database.Path = "" }, false},
		{"postgres without dsn", func(c *config.Config) { c.Database.Driver = "postgres" }, false},
		{"pool min above max", func(c *config.Config) {
			c.Database = config.DatabaseConfig{Driver: "postgres", DSN: "postgres://x", MinConns: 5, MaxConns: 2}
		}, false},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }, false},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, false},
		{"bad timezone", func(c *config.Config) { c.Engine.Timezone = "Mars/Olympus" }, false},
		{"bad default state", func(c *config.Config) { c.Engine.DefaultState = "Calif" }, false},
		{"zero lookback", func(c *config.Config) { c.Engine.ConsecutiveLookbackDays = 0 }, false},
		{"bad epoch", func(c *config.Config) { c.Engine.PolicyEpoch = "01/01/2020" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"GET", "POST"}, config.Split(" GET, ,POST "))
	assert.Nil(t, config.Split(""))
}
