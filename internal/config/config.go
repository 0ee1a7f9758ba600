package config

import (
	"strings"

	"github.com/abgdnv/productapi/pkg/config"
	"github.com/abgdnv/productapi/pkg/config/configloader"
)

// ServiceName prefixes environment overrides, e.g. PRODUCT_AUTH_APIKEY.
const ServiceName = "product"

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Auth       config.AuthConfig       `koanf:"auth"`
	Log        config.LogConfig        `koanf:"log"`
	Admin      config.AdminConfig      `koanf:"admin"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Messaging  config.MessagingConfig  `koanf:"messaging"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
}

// Defaults returns the built-in configuration; every key can be overridden.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":               3000,
		"server.maxheaderbytes":     1 << 20,
		"server.maxbodybytes":       1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "120s",
		"server.timeout.readheader": "2s",

		"auth.apikey": "your-secret-api-key",

		"log.level": "info",

		"admin.enabled": false,
		"admin.addr":    "localhost:6060",

		"grpc.enabled":    false,
		"grpc.port":       "50051",
		"grpc.reflection": false,

		"shutdown.timeout": "15s",

		"messaging.enabled":                            false,
		"messaging.url":                                "nats://localhost:4222",
		"messaging.timeout":                            "5s",
		"messaging.publishtimeout":                     "2s",
		"messaging.circuitbreaker.consecutivefailures": 5,
		"messaging.circuitbreaker.opentimeout":         "30s",

		"telemetry.traces.enabled":          false,
		"telemetry.traces.otlphttp.timeout": "5s",
	}
}

// Load reads the configuration for this service.
func Load() (*Config, error) {
	return configloader.Load[*Config](ServiceName, Defaults())
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Auth.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.Admin.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Messaging.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Admin.Validate(); err != nil {
		return err
	}
	if err := c.GRPC.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Messaging.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}
