// Package config defines the configuration of the order service binary.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/orders/pkg/config"
	"github.com/abgdnv/orders/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// Config holds every configurable aspect of the order service.
type Config struct {
	HTTPServer config.HTTPConfig     `koanf:"server"`
	Database   config.DatabaseConfig `koanf:"database"`
	Log        config.LogConfig      `koanf:"log"`
	PProf      config.PProfConfig    `koanf:"pprof"`
	Nats       config.NATSConfig     `koanf:"nats"`
	Shutdown   config.ShutdownConfig `koanf:"shutdown"`
	Services   ServicesConfig        `koanf:"services"`
}

// ServicesConfig lists the downstream collaborators the order pipeline
// calls: the products service, the services catalog, the users service and
// the stores service.
type ServicesConfig struct {
	Products config.HTTPClientConfig `koanf:"products"`
	Catalog  config.HTTPClientConfig `koanf:"catalog"`
	Users    config.HTTPClientConfig `koanf:"users"`
	Stores   config.HTTPClientConfig `koanf:"stores"`
}

// String returns a printable representation with credentials masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("\n--- HTTP Server ---\n")
	b.WriteString(fmt.Sprintf("  port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  timeout.read: %s\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  timeout.write: %s\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  timeout.idle: %s\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  timeout.readHeader: %s\n", c.HTTPServer.Timeout.ReadHeader))
	b.WriteString(c.Database.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString("\n--- Services ---\n")
	b.WriteString(fmt.Sprintf("  products: %s (%s)\n", c.Services.Products.BaseURL, c.Services.Products.Timeout))
	b.WriteString(fmt.Sprintf("  catalog: %s (%s)\n", c.Services.Catalog.BaseURL, c.Services.Catalog.Timeout))
	b.WriteString(fmt.Sprintf("  users: %s (%s)\n", c.Services.Users.BaseURL, c.Services.Users.Timeout))
	b.WriteString(fmt.Sprintf("  stores: %s (%s)\n", c.Services.Stores.BaseURL, c.Services.Stores.Timeout))
	return b.String()
}

// Validate checks every section and fails on the first invalid one.
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	for name, client := range map[string]*config.HTTPClientConfig{
		"products": &c.Services.Products,
		"catalog":  &c.Services.Catalog,
		"users":    &c.Services.Users,
		"stores":   &c.Services.Stores,
	} {
		if err := client.Validate(); err != nil {
			return fmt.Errorf("services.%s: %w", name, err)
		}
	}
	return nil
}
