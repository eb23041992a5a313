package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the FunnelPulse application.
type Config struct {
	Server     ServerConfig
	ClickHouse ClickHouseConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Geo        GeoConfig
	AdPlatform AdPlatformConfig
	Funnel     FunnelConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// ClickHouseConfig configures the event store connection.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled     bool
	IngestRPS   float64
	IngestBurst int
	QueryRPS    float64
	QueryBurst  int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures the Prometheus listener. Internal metrics are
// served on their own port so the path never collides with the public
// GET /metrics funnel endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
	Port    string
}

// GeoConfig configures GeoIP enrichment of ingested events.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
	CacheSize    int
	CacheTTL     time.Duration
}

// AdPlatformConfig configures the outbound ad-platform integration.
type AdPlatformConfig struct {
	Enabled      bool
	TokenURL     string
	APIBaseURL   string
	ClientID     string
	ClientSecret string
}

// FunnelConfig holds tuning knobs for the aggregation engine.
type FunnelConfig struct {
	// DefaultWindow is the metrics window when startDate/endDate are omitted.
	DefaultWindow time.Duration
	// ActiveWindow is the trailing window for the live visitor count.
	ActiveWindow time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("FUNNELPULSE_HTTP_ADDR", ":8080"),
			Env:             getEnv("FUNNELPULSE_ENV", "development"),
			ShutdownTimeout: getDurationEnv("FUNNELPULSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("FUNNELPULSE_CLICKHOUSE_ADDR", ""),
			Database: getEnv("FUNNELPULSE_CLICKHOUSE_DB", "funnelpulse"),
			Username: getEnv("FUNNELPULSE_CLICKHOUSE_USER", "default"),
			Password: getEnv("FUNNELPULSE_CLICKHOUSE_PASSWORD", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("FUNNELPULSE_DB_HOST", "localhost"),
			Port:     getIntEnv("FUNNELPULSE_DB_PORT", 5432),
			User:     getEnv("FUNNELPULSE_DB_USER", "funnelpulse"),
			Password: getEnv("FUNNELPULSE_DB_PASSWORD", "funnelpulse_secret"),
			DBName:   getEnv("FUNNELPULSE_DB_NAME", "funnelpulse"),
			SSLMode:  getEnv("FUNNELPULSE_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("FUNNELPULSE_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("FUNNELPULSE_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("FUNNELPULSE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("FUNNELPULSE_REDIS_PASSWORD", ""),
			DB:       getIntEnv("FUNNELPULSE_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("FUNNELPULSE_AUTH_ENABLED", true),
			MasterKey: getEnv("FUNNELPULSE_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("FUNNELPULSE_AUTH_SKIP_PATHS", []string{"/health"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("FUNNELPULSE_RATE_LIMIT_ENABLED", true),
			IngestRPS:   getFloatEnv("FUNNELPULSE_RATE_LIMIT_INGEST_RPS", 1000),
			IngestBurst: getIntEnv("FUNNELPULSE_RATE_LIMIT_INGEST_BURST", 200),
			QueryRPS:    getFloatEnv("FUNNELPULSE_RATE_LIMIT_QUERY_RPS", 100),
			QueryBurst:  getIntEnv("FUNNELPULSE_RATE_LIMIT_QUERY_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("FUNNELPULSE_LOG_LEVEL", "info"),
			Format: getEnv("FUNNELPULSE_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("FUNNELPULSE_METRICS_ENABLED", true),
			Path:    getEnv("FUNNELPULSE_METRICS_PATH", "/metrics"),
			Port:    getEnv("FUNNELPULSE_METRICS_PORT", "9090"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("FUNNELPULSE_GEO_ENABLED", false),
			DatabasePath: getEnv("FUNNELPULSE_GEO_DB_PATH", "/app/data/GeoLite2-Country.mmdb"),
			CacheSize:    getIntEnv("FUNNELPULSE_GEO_CACHE_SIZE", 10000),
			CacheTTL:     getDurationEnv("FUNNELPULSE_GEO_CACHE_TTL", 1*time.Hour),
		},
		AdPlatform: AdPlatformConfig{
			Enabled:      getBoolEnv("FUNNELPULSE_ADPLATFORM_ENABLED", false),
			TokenURL:     getEnv("FUNNELPULSE_ADPLATFORM_TOKEN_URL", ""),
			APIBaseURL:   getEnv("FUNNELPULSE_ADPLATFORM_API_URL", ""),
			ClientID:     getEnv("FUNNELPULSE_ADPLATFORM_CLIENT_ID", ""),
			ClientSecret: getEnv("FUNNELPULSE_ADPLATFORM_CLIENT_SECRET", ""),
		},
		Funnel: FunnelConfig{
			DefaultWindow: getDurationEnv("FUNNELPULSE_DEFAULT_WINDOW", 30*24*time.Hour),
			ActiveWindow:  getDurationEnv("FUNNELPULSE_ACTIVE_WINDOW", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("FUNNELPULSE_API_KEY_MASTER is required when auth is enabled")
	}
	if c.AdPlatform.Enabled {
		if c.AdPlatform.TokenURL == "" || c.AdPlatform.ClientID == "" || c.AdPlatform.ClientSecret == "" {
			return fmt.Errorf("ad platform integration requires token URL, client id and client secret")
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
