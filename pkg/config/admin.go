package config

import (
	"fmt"
	"strings"
)

// AdminConfig configures the side listener serving health, metrics and pprof.
type AdminConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// String returns a string representation of the admin configuration.
func (c *AdminConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Admin ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  address: %s\n", c.Addr))
	return b.String()
}

func (c *AdminConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("admin server is enabled but address is not configured")
	}
	return nil
}
