package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Memory driver with defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8080
  grpc_port: 9090
database:
  driver: memory
jwt:
  secret: "`+testSecret+`"
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "memory", cfg.Database.Driver)
		assert.Equal(t, "USD", cfg.Booking.Currency)
		assert.Equal(t, 50, cfg.Search.DefaultLimit)
		assert.Equal(t, 100, cfg.Search.MaxLimit)
		assert.Equal(t, "none", cfg.Notification.Provider)
		assert.Equal(t, "0 */5 * * * *", cfg.Scheduler.CompleteElapsedBookings)
		assert.Equal(t, "127.0.0.1:8080", cfg.GetServerAddress())
		assert.Equal(t, "127.0.0.1:9090", cfg.GetGRPCAddress())
	})

	t.Run("Env overrides file", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9999")
		t.Setenv("DB_HOST", "db.internal")
		path := writeConfig(t, `
server:
  port: 8080
database:
  driver: postgres
  host: localhost
  port: 5432
  user: parkspace
  database: parkspace
jwt:
  secret: "`+testSecret+`"
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "postgres://parkspace:@db.internal:5432/parkspace?sslmode=disable", cfg.GetDatabaseConnectionString())
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "memory"},
			JWT:      JWTConfig{Secret: testSecret},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Short secret", func(c *Config) { c.JWT.Secret = "short" }, "at least 32"},
		{"Bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"Unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "unknown database driver"},
		{"Postgres needs host", func(c *Config) { c.Database.Driver = "postgres" }, "database host"},
		{"Cache needs addr", func(c *Config) { c.Cache.Enabled = true }, "cache addr"},
		{"Events need url", func(c *Config) { c.Events.Enabled = true }, "events url"},
		{"Sendgrid needs key", func(c *Config) { c.Notification.Provider = "sendgrid" }, "sendgrid api key"},
		{"Limits inverted", func(c *Config) { c.Search.DefaultLimit = 500 }, "exceeds max_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("Valid", func(t *testing.T) {
		c := base()
		require.NoError(t, c.Validate())
		assert.Equal(t, 10, c.Booking.PaymentTimeoutSeconds)
		assert.Equal(t, 15, c.Booking.ReservationTTLMinutes)
	})
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("GET", "/api/v1/lots"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("POST", "/api/v1/bookings"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("GET", "/api/v1/unknown"))
}
