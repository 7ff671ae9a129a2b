// Package container provides dependency injection and lifecycle management
// for the expense approval service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/config"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Approval workflow tuning
	Approval ApprovalConfig

	// Metrics endpoint
	Metrics MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ApprovalConfig holds approval workflow settings.
type ApprovalConfig struct {
	// MaxDecisionRetries bounds the attempts of one decision under contention
	MaxDecisionRetries int

	// DefaultCurrency is used when neither the expense nor its company names one
	DefaultCurrency string

	// BootstrapCompanyName names the company created for the first user
	BootstrapCompanyName string
}

// MetricsConfig holds prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/expenses.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Approval: ApprovalConfig{
			MaxDecisionRetries:   3,
			DefaultCurrency:      "USD",
			BootstrapCompanyName: "Default Company",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// FromAppConfig maps the loaded application configuration onto the container configuration.
func FromAppConfig(cfg *config.Config) *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		},
		Server: ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		Approval: ApprovalConfig{
			MaxDecisionRetries:   cfg.Approval.MaxDecisionRetries,
			DefaultCurrency:      cfg.Approval.DefaultCurrency,
			BootstrapCompanyName: cfg.Approval.BootstrapCompanyName,
		},
		Metrics: MetricsConfig{
			Enabled: cfg.Metrics.Enabled,
			Path:    cfg.Metrics.Path,
		},
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Approval.MaxDecisionRetries < 1 {
		return fmt.Errorf("approval max decision retries must be at least 1")
	}
	if c.Approval.DefaultCurrency == "" {
		return fmt.Errorf("approval default currency is required")
	}
	return nil
}
