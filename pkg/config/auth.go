package config

import (
	"fmt"
	"strings"
)

type AuthConfig struct {
	APIKey string `koanf:"apikey"`
}

// String returns a string representation of the auth configuration with the key masked.
func (c *AuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Auth ---\n")
	b.WriteString(fmt.Sprintf("  apiKey: %s\n", maskSecret(c.APIKey)))
	return b.String()
}

func (c *AuthConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("auth API key is not configured")
	}
	return nil
}

func maskSecret(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}
