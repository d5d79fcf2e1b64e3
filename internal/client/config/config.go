package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the FieldKeeper client.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	// CallTimeout bounds each remote call made by the sync engine.
	CallTimeout time.Duration
	BatchSize   int
	PageSize    int
	// TombstoneRetention is how long confirmed tombstones are kept; 0 keeps them forever.
	TombstoneRetention time.Duration
	DatabasePath       string
	LogFile            string
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = time.Minute
	c.CallTimeout = 15 * time.Second
	c.BatchSize = 50
	c.PageSize = 100
	c.TombstoneRetention = 30 * 24 * time.Hour
	c.DatabasePath = "fieldkeeper.db"
	c.LogFile = "fieldkeeper.log"
	c.LogLevel = "info"
}

func (c *Config) validate() error {
	switch {
	case c.OnlineCheckInterval <= 0:
		return fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval)
	case c.SyncInterval <= 0:
		return fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval)
	case c.CallTimeout <= 0:
		return fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.PageSize <= 0:
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	case c.TombstoneRetention < 0:
		return fmt.Errorf("tombstone retention must not be negative, got %s", c.TombstoneRetention)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
