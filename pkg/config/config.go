package config

import (
	"time"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Autoscaler  AutoscalerConfig  `mapstructure:"autoscaler"`
	Provisioner ProvisionerConfig `mapstructure:"provisioner"`
	API         APIConfig         `mapstructure:"api"`
	WebSocket   WebSocketConfig   `mapstructure:"websocket"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Events      EventsConfig      `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// AutoscalerConfig carries the evaluation cadence plus the policy defaults
// applied to services that do not override them.
type AutoscalerConfig struct {
	Frequency                  time.Duration `mapstructure:"frequency"`
	WindowSize                 time.Duration `mapstructure:"window_size"`
	DefaultMinReplicas         int           `mapstructure:"default_min_replicas"`
	DefaultMaxReplicas         int           `mapstructure:"default_max_replicas"`
	DefaultTargetQPSPerReplica float64       `mapstructure:"default_target_qps_per_replica"`
	UseSpot                    bool          `mapstructure:"use_spot"`
}

type ProvisionerConfig struct {
	Type           string        `mapstructure:"type"`
	ProvisionDelay time.Duration `mapstructure:"provision_delay"`
	StartupDelay   time.Duration `mapstructure:"startup_delay"`
	FailureRate    float64       `mapstructure:"failure_rate"`
	PreemptionRate float64       `mapstructure:"preemption_rate"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTDuration  time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
