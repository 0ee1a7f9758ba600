package config

import (
	"fmt"
	"strings"
	"time"
)

// MessagingConfig configures publishing of product events to NATS JetStream.
type MessagingConfig struct {
	Enabled        bool                 `koanf:"enabled"`
	Url            string               `koanf:"url"`
	Timeout        time.Duration        `koanf:"timeout"`
	PublishTimeout time.Duration        `koanf:"publishtimeout"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// String returns a string representation of the messaging configuration.
func (c *MessagingConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Messaging ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  publishtimeout: %s\n", c.PublishTimeout))
	b.WriteString(c.CircuitBreaker.String())
	return b.String()
}

func (c *MessagingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Url == "" {
		return fmt.Errorf("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("nats publish timeout is not configured")
	}
	return c.CircuitBreaker.Validate()
}
