package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Environment:    "development",
		HTTPPort:       5000,
		StoreDriver:    DriverMongo,
		JWTSecret:      defaultJWTSecret,
		JWTExpiresIn:   168 * time.Hour,
		DBMaxConns:     20,
		DBMinConns:     2,
		OTelSampleRate: 1,
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "storefront", cfg.MongoDatabase)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold())
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.RedisEnabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STOREFRONT_HTTP_PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PRODUCT_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.ProductCacheTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTPPort = 0 }, "invalid HTTP port"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, "invalid STORE_DRIVER"},
		{"memory in development", func(c *Config) { c.StoreDriver = DriverMemory }, ""},
		{"memory in production", func(c *Config) {
			c.Environment = "production"
			c.StoreDriver = DriverMemory
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, "not allowed in production"},
		{"default secret outside development", func(c *Config) { c.Environment = "staging" }, "must be set explicitly"},
		{"short secret outside development", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "short"
		}, "at least 32 characters"},
		{"long secret in production", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, ""},
		{"min above max conns", func(c *Config) { c.DBMinConns = 50 }, "exceeds DB_MAX_CONNS"},
		{"sample rate", func(c *Config) { c.OTelSampleRate = 2 }, "OTEL_SAMPLE_RATE"},
		{"kafka without brokers", func(c *Config) {
			c.KafkaEnabled = true
			c.KafkaBrokers = nil
		}, "KAFKA_BROKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnectionSettings(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB = "db", 5433, "shop"
	cfg.RedisAddr = "cache:6379"

	pg := cfg.Postgres()
	assert.Equal(t, "db", pg.Host)
	assert.Equal(t, int32(20), pg.MaxConns)
	assert.Equal(t, "cache:6379", cfg.Redis().Addr)
	assert.Equal(t, uint64(20), cfg.Mongo().MaxPoolSize)
	assert.Equal(t, "storefront", cfg.Tracing().ServiceName)
}
