/*
Package config loads the server configuration.

PURPOSE:
  One Config struct, filled from a YAML file and environment variables.
  Priority: ENV > YAML > defaults (env-default tags).

SEE ALSO:
  - loader.go: Load
  - validate.go: Validate
*/
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
	Engine   EngineConfig   `yaml:"engine"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Driver names accepted in DatabaseConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the store. Path is used by SQLite, DSN and the
// pool settings by PostgreSQL.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"             env:"DATABASE_DRIVER"             env-default:"sqlite"`
	Path            string        `yaml:"path"               env:"DATABASE_PATH"               env-default:"labor.db"`
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings. List values are comma separated.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	AllowedMethods string `yaml:"allowed_methods" env:"CORS_ALLOWED_METHODS" env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders string `yaml:"allowed_headers" env:"CORS_ALLOWED_HEADERS" env-default:"Accept,Authorization,Content-Type,X-Request-ID"`
	MaxAge         int    `yaml:"max_age"         env:"CORS_MAX_AGE"         env-default:"300"`
}

// EngineConfig holds compliance engine settings.
type EngineConfig struct {
	// Timezone is the IANA zone used to split shifts into calendar days.
	Timezone string `yaml:"timezone" env:"ENGINE_TIMEZONE" env-default:"UTC"`
	// DefaultState is given to employee profiles registered without one.
	// Empty means federal rules only.
	DefaultState            string `yaml:"default_state"             env:"ENGINE_DEFAULT_STATE"`
	ConsecutiveLookbackDays int    `yaml:"consecutive_lookback_days" env:"ENGINE_CONSECUTIVE_LOOKBACK_DAYS" env-default:"30"`
	// PolicyEpoch is the effective date given to the built-in policies
	// seeded into an empty store.
	PolicyEpoch string `yaml:"policy_epoch" env:"ENGINE_POLICY_EPOCH" env-default:"2020-01-01"`
	// PolicySyncInterval reloads policies published by other instances
	// sharing the store. Zero disables it.
	PolicySyncInterval time.Duration `yaml:"policy_sync_interval" env:"ENGINE_POLICY_SYNC_INTERVAL" env-default:"0s"`

	// Location is resolved from Timezone during validation.
	Location *time.Location `yaml:"-" env:"-"`
	// Epoch is parsed from PolicyEpoch during validation.
	Epoch time.Time `yaml:"-" env:"-"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Split returns the comma-separated values of a CORS list.
func Split(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
