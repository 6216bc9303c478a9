package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "autoscaler", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, 20*time.Second, cfg.Autoscaler.Frequency)
	assert.Equal(t, 60*time.Second, cfg.Autoscaler.WindowSize)
	assert.Equal(t, 1, cfg.Autoscaler.DefaultMinReplicas)
	assert.Equal(t, "sim", cfg.Provisioner.Type)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, 1000, cfg.Events.BufferSize)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("AUTOSCALER_AUTOSCALER_FREQUENCY", "5s")
	os.Setenv("AUTOSCALER_API_PORT", "9999")
	defer os.Unsetenv("AUTOSCALER_AUTOSCALER_FREQUENCY")
	defer os.Unsetenv("AUTOSCALER_API_PORT")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Autoscaler.Frequency)
	assert.Equal(t, 9999, cfg.API.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.App.Mode = "staging" },
			wantErr: "app.mode",
		},
		{
			name:    "zero frequency",
			mutate:  func(c *Config) { c.Autoscaler.Frequency = 0 },
			wantErr: "autoscaler.frequency",
		},
		{
			name:    "max below min",
			mutate:  func(c *Config) { c.Autoscaler.DefaultMinReplicas = 3; c.Autoscaler.DefaultMaxReplicas = 2 },
			wantErr: "default_max_replicas",
		},
		{
			name:    "unknown provisioner",
			mutate:  func(c *Config) { c.Provisioner.Type = "gcp" },
			wantErr: "provisioner.type",
		},
		{
			name:    "failure rate out of range",
			mutate:  func(c *Config) { c.Provisioner.FailureRate = 1.5 },
			wantErr: "failure_rate",
		},
		{
			name:    "production requires jwt secret",
			mutate:  func(c *Config) { c.App.Mode = "production"; c.API.JWTSecret = "" },
			wantErr: "jwt_secret",
		},
		{
			name:    "metrics port clash",
			mutate:  func(c *Config) { c.Metrics.Port = c.API.Port },
			wantErr: "metrics.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestToDBConfig(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.internal", Port: 5433, Name: "scaler",
		User: "svc", Password: "secret", SSLMode: "require",
		MaxConnections: 10,
	}
	dbCfg := d.ToDBConfig()
	assert.Equal(t, "db.internal", dbCfg.Host)
	assert.Equal(t, 5433, dbCfg.Port)
	assert.Equal(t, 10, dbCfg.MaxConnections)
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=secret dbname=scaler sslmode=require",
		dbCfg.DSN())
}
