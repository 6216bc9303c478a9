package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	switch c.App.Mode {
	case "development", "production", "test":
	default:
		errs = append(errs, fmt.Sprintf("app.mode must be one of development, production, test (got %q)", c.App.Mode))
	}

	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be in 1..65535 (got %d)", c.Database.Port))
	}
	if c.Database.Name == "" {
		errs = append(errs, "database.name is required")
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, "database.max_connections must be positive")
	}

	if c.Autoscaler.Frequency <= 0 {
		errs = append(errs, "autoscaler.frequency must be positive")
	}
	if c.Autoscaler.WindowSize <= 0 {
		errs = append(errs, "autoscaler.window_size must be positive")
	}
	if c.Autoscaler.DefaultMinReplicas < 0 {
		errs = append(errs, "autoscaler.default_min_replicas must not be negative")
	}
	if c.Autoscaler.DefaultMaxReplicas != 0 && c.Autoscaler.DefaultMaxReplicas < c.Autoscaler.DefaultMinReplicas {
		errs = append(errs, "autoscaler.default_max_replicas must be 0 or >= default_min_replicas")
	}
	if c.Autoscaler.DefaultTargetQPSPerReplica < 0 {
		errs = append(errs, "autoscaler.default_target_qps_per_replica must not be negative")
	}

	if c.Provisioner.Type != "sim" {
		errs = append(errs, fmt.Sprintf("provisioner.type: unknown type %q", c.Provisioner.Type))
	}
	if c.Provisioner.FailureRate < 0 || c.Provisioner.FailureRate > 1 {
		errs = append(errs, "provisioner.failure_rate must be in [0, 1]")
	}
	if c.Provisioner.PreemptionRate < 0 || c.Provisioner.PreemptionRate > 1 {
		errs = append(errs, "provisioner.preemption_rate must be in [0, 1]")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port must be in 1..65535 (got %d)", c.API.Port))
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, "api.rate_limit must be positive")
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "" {
		errs = append(errs, "api.jwt_secret is required in production mode")
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		errs = append(errs, "api.max_limit must be >= api.default_limit")
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port must be in 1..65535 (got %d)", c.Metrics.Port))
	}
	if c.Metrics.Enabled && c.Metrics.Port == c.API.Port {
		errs = append(errs, "metrics.port must differ from api.port")
	}

	if c.Events.BufferSize <= 0 {
		errs = append(errs, "events.buffer_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
