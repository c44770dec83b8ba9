package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	Booking      BookingConfig      `yaml:"booking"`
	Search       SearchConfig       `yaml:"search"`
	Cache        CacheConfig        `yaml:"cache"`
	Events       EventsConfig       `yaml:"events"`
	Notification NotificationConfig `yaml:"notification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig selects the store. Driver "memory" ignores the connection fields.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "postgres" or "memory"
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// JWTConfig contains session token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// BookingConfig tunes the booking lifecycle
type BookingConfig struct {
	Currency              string `yaml:"currency"`
	PaymentTimeoutSeconds int    `yaml:"payment_timeout_seconds"`
	PaymentLatencyMs      int    `yaml:"payment_latency_ms"`
	ReservationTTLMinutes int    `yaml:"reservation_ttl_minutes"`
}

func (b BookingConfig) PaymentTimeout() time.Duration {
	return time.Duration(b.PaymentTimeoutSeconds) * time.Second
}

func (b BookingConfig) ReservationTTL() time.Duration {
	return time.Duration(b.ReservationTTLMinutes) * time.Minute
}

// SearchConfig bounds lot search pagination
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// CacheConfig contains the Redis search cache settings
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// EventsConfig contains the RabbitMQ booking event settings
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// NotificationConfig selects how booking emails are delivered
type NotificationConfig struct {
	Provider       string     `yaml:"provider"` // "none", "smtp" or "sendgrid"
	From           string     `yaml:"from"`
	FromName       string     `yaml:"from_name"`
	SMTP           SMTPConfig `yaml:"smtp"`
	SendGridAPIKey string     `yaml:"sendgrid_api_key"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	CompleteElapsedBookings string `yaml:"complete_elapsed_bookings"`
	ReconcileReservations   string `yaml:"reconcile_reservations"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, seeds the environment before overrides apply.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("GRPC_PORT", &c.Server.GRPCPort)

	envString("DB_DRIVER", &c.Database.Driver)
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	envString("JWT_SECRET", &c.JWT.Secret)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envInt("PAYMENT_TIMEOUT_SECONDS", &c.Booking.PaymentTimeoutSeconds)

	envBool("CACHE_ENABLED", &c.Cache.Enabled)
	envString("REDIS_ADDR", &c.Cache.Addr)
	envString("REDIS_PASSWORD", &c.Cache.Password)

	envBool("EVENTS_ENABLED", &c.Events.Enabled)
	envString("RABBITMQ_URL", &c.Events.URL)

	envString("NOTIFICATION_PROVIDER", &c.Notification.Provider)
	envString("SMTP_HOST", &c.Notification.SMTP.Host)
	envInt("SMTP_PORT", &c.Notification.SMTP.Port)
	envString("SMTP_USER", &c.Notification.SMTP.User)
	envString("SMTP_PASSWORD", &c.Notification.SMTP.Password)
	envString("SENDGRID_API_KEY", &c.Notification.SendGridAPIKey)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.Booking.Currency == "" {
		c.Booking.Currency = "USD"
	}
	if c.Booking.PaymentTimeoutSeconds <= 0 {
		c.Booking.PaymentTimeoutSeconds = 10
	}
	if c.Booking.ReservationTTLMinutes <= 0 {
		c.Booking.ReservationTTLMinutes = 15
	}

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 50
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search default_limit %d exceeds max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache addr is required when cache is enabled")
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 30
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events url is required when events are enabled")
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "parkspace.bookings"
	}

	switch c.Notification.Provider {
	case "", "none":
		c.Notification.Provider = "none"
	case "smtp":
		if c.Notification.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Notification.SMTP.Port <= 0 || c.Notification.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Notification.SMTP.Port)
		}
	case "sendgrid":
		if c.Notification.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
	default:
		return fmt.Errorf("unknown notification provider: %s", c.Notification.Provider)
	}
	if c.Notification.Provider != "none" && c.Notification.From == "" {
		return fmt.Errorf("notification from address is required")
	}

	if c.Scheduler.CompleteElapsedBookings == "" {
		c.Scheduler.CompleteElapsedBookings = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ReconcileReservations == "" {
		c.Scheduler.ReconcileReservations = "0 */10 * * * *" // every 10 minutes
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC listen address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
