// Package config provides configuration management for the dbview CLI.
//
// Values are layered with koanf: built-in defaults, then dbview.yaml, then
// DBVIEW_ environment variables, then flags set on the command line.
package config

import (
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Default configuration values.
const (
	DefaultOutput     = "table"
	DefaultPageSize   = 5
	DefaultServerAddr = "127.0.0.1:8080"
)

// MemoryDatabase selects a private in-memory database.
const MemoryDatabase = ":memory:"

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Addr  string `koanf:"addr"`
	Watch bool   `koanf:"watch"`
}

// Config holds all CLI configuration options.
type Config struct {
	Database    string            `koanf:"database"`
	Type        string            `koanf:"type"`
	Driver      string            `koanf:"driver"`
	DSN         string            `koanf:"dsn"`
	PageSize    int64             `koanf:"page_size"`
	Output      string            `koanf:"output"`
	Verbose     bool              `koanf:"verbose"`
	HistoryFile string            `koanf:"history_file"`
	HistoryDB   string            `koanf:"history_db"`
	Options     map[string]string `koanf:"options"`
	Params      map[string]any    `koanf:"params"`
	Server      ServerConfig      `koanf:"server"`
}

// OpenConfig converts the configured database into an adapter open request.
func (c *Config) OpenConfig() core.OpenConfig {
	cfg := core.OpenConfig{
		Type:    c.Type,
		DSN:     c.DSN,
		Options: make(map[string]string, len(c.Options)+1),
		Params:  c.Params,
	}
	for k, v := range c.Options {
		cfg.Options[k] = v
	}
	if c.Driver != "" {
		cfg.Options["driver"] = c.Driver
	}
	if c.Database == MemoryDatabase {
		cfg.Memory = true
	} else {
		cfg.Path = c.Database
	}
	return cfg
}

// HasDatabase reports whether a database to open was configured.
func (c *Config) HasDatabase() bool {
	return c.Database != "" || c.DSN != ""
}
