package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/dbview/pkg/adapters"
)

// OutputFormats lists the accepted values of the output setting.
var OutputFormats = []string{"table", "json", "csv", "md", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.Output) {
		return fmt.Errorf("invalid output format %q (valid: %s)", c.Output, strings.Join(OutputFormats, ", "))
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Type != "" {
		if !slices.Contains(adapters.Kinds(), strings.ToLower(c.Type)) {
			return &adapters.UnknownBackendError{Type: c.Type, Available: adapters.Kinds()}
		}
	}
	if c.Database != "" && c.DSN != "" {
		return fmt.Errorf("database and dsn are mutually exclusive")
	}
	return nil
}
