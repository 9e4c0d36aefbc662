package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/labor-engine/timecard"
)

// Validate checks the loaded configuration and resolves derived fields
// (Engine.Location, Engine.Epoch). Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Engine.validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("path is required for the sqlite driver")
		}
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres driver")
		}
		if d.MinConns < 0 || d.MaxConns <= 0 || d.MinConns > d.MaxConns {
			return fmt.Errorf("pool sizes must satisfy 0 <= min_conns <= max_conns, max_conns > 0 (got %d, %d)", d.MinConns, d.MaxConns)
		}
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", d.Driver, DriverSQLite, DriverPostgres)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}

func (e *EngineConfig) validate() error {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	e.Location = loc

	state, err := timecard.NormalizeState(e.DefaultState)
	if err != nil {
		return fmt.Errorf("default_state: %w", err)
	}
	e.DefaultState = state

	if e.ConsecutiveLookbackDays <= 0 {
		return fmt.Errorf("consecutive_lookback_days must be > 0 (got %d)", e.ConsecutiveLookbackDays)
	}

	if e.PolicySyncInterval < 0 {
		return fmt.Errorf("policy_sync_interval must be >= 0 (got %s)", e.PolicySyncInterval)
	}

	epoch, err := time.Parse(time.DateOnly, e.PolicyEpoch)
	if err != nil {
		return fmt.Errorf("policy_epoch: %w", err)
	}
	e.Epoch = epoch
	return nil
}
