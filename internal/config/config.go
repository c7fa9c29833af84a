package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment names accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config represents the full runtime configuration tree. It is built once by
// Load and shared read-only afterwards.
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Cors        CORSConfig
	Monitoring  MonitoringConfig
	Telemetry   TelemetryConfig
	Diagnostics DiagnosticsConfig
}

// AppConfig captures application-level settings.
type AppConfig struct {
	Name            string        `env:"APP_NAME" envDefault:"users-api"`
	Env             string        `env:"APP_ENV" envDefault:"development"`
	Version         string        `env:"APP_VERSION" envDefault:"1.0.0"`
	Port            int           `env:"PORT" envDefault:"3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// IsDevelopment reports whether verbose diagnostics may be exposed.
func (a AppConfig) IsDevelopment() bool { return a.Env == EnvDevelopment }

// IsProduction reports whether the strict production profile applies.
func (a AppConfig) IsProduction() bool { return a.Env == EnvProduction }

// Addr returns the listen address for the HTTP server.
func (a AppConfig) Addr() string { return ":" + strconv.Itoa(a.Port) }

// DatabaseConfig stores database connectivity info.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	DSN             string        `env:"DATABASE_URL"`
	ReadOnlyDSN     string        `env:"DATABASE_READ_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// RedisConfig stores redis connectivity info. An empty Addr disables redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Username string `env:"REDIS_USER"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TLS      bool   `env:"REDIS_TLS" envDefault:"false"`
}

// AuthConfig stores session verification settings.
type AuthConfig struct {
	Secret          string        `env:"AUTH_SECRET"`
	CookieName      string        `env:"AUTH_COOKIE_NAME" envDefault:"better-auth.session_token"`
	Issuer          string        `env:"AUTH_ISSUER" envDefault:"users-api"`
	SessionTTL      time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`
	SessionCacheTTL time.Duration `env:"SESSION_CACHE_TTL" envDefault:"1m"`
}

// RateLimitConfig manages throttling parameters.
type RateLimitConfig struct {
	Enabled           bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsPerMinute int    `env:"API_RATE_LIMIT_MAX" envDefault:"100"`
	Burst             int    `env:"RATE_LIMIT_BURST" envDefault:"10"`
	RedisPrefix       string `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
}

// CORSConfig declares cross-origin policy.
type CORSConfig struct {
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	AllowedMethods   []string `env:"CORS_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	ExposedHeaders   []string `env:"CORS_EXPOSED_HEADERS" envSeparator:"," envDefault:"X-RateLimit-Limit,X-RateLimit-Remaining"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"86400"`
}

// MonitoringConfig adds observability tunables.
type MonitoringConfig struct {
	PrometheusEnabled bool    `env:"PROMETHEUS_ENABLED" envDefault:"true"`
	SentryDSN         string  `env:"SENTRY_DSN"`
	SentrySampleRate  float64 `env:"SENTRY_SAMPLE_RATE" envDefault:"0.2"`
}

// TelemetryConfig configures OTLP trace export. An empty Endpoint installs a
// noop tracer provider.
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"users-api"`
}

// DiagnosticsConfig governs debug helpers.
type DiagnosticsConfig struct {
	EnableDebugLogs bool `env:"ENABLE_DEBUG_LOGS" envDefault:"false"`
	MaxLogLines     int  `env:"DEBUG_LOG_LIMIT" envDefault:"200"`
}

// Load reads from environment (optionally .env) and builds Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.App.LogLevel = strings.ToLower(strings.TrimSpace(c.App.LogLevel))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Cors.AllowedOrigins = trimAll(c.Cors.AllowedOrigins)
	c.Cors.AllowedMethods = trimAll(c.Cors.AllowedMethods)
	c.Cors.AllowedHeaders = trimAll(c.Cors.AllowedHeaders)
	c.Cors.ExposedHeaders = trimAll(c.Cors.ExposedHeaders)
}

func (c *Config) validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("unsupported APP_ENV %q", c.App.Env)
	}
	switch c.App.LogLevel {
	case "error", "warn", "info", "http", "debug":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL %q", c.App.LogLevel)
	}
	if c.App.Port <= 0 || c.App.Port >= 65536 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported db driver %s", c.Database.Driver)
	}
	if len(c.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters long")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trim := strings.TrimSpace(v); trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
