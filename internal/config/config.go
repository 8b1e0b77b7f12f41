package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Tenant   TenantConfig
	MP       MPConfig
	Session  SessionConfig
	CORS     CORSConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// UpstreamURL is the web app the gateway fronts; empty serves a
	// development placeholder instead.
	UpstreamURL string
	// AppName and AppColor brand the manifest in single-tenant mode
	AppName  string
	AppColor string
}

// DatabaseConfig holds central database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig controls the tenant lookup cache
type CacheConfig struct {
	Enabled bool
	Type    string // "redis" or "memory"
	TTL     time.Duration
}

// TenantConfig controls multi-tenant host resolution
type TenantConfig struct {
	// BaseDomain is the reserved platform domain; requests to
	// <slug>.<BaseDomain> resolve the tenant by slug.
	BaseDomain string
}

// MPConfig holds the default (single-tenant mode) MinistryPlatform
// credentials. In multi-tenant mode the tenant record overrides
// Domain and ClientID/ClientSecret.
type MPConfig struct {
	Domain       string
	ClientID     string
	ClientSecret string
	FileURL      string
	AdminRoleID  int
	RedirectURI  string
}

// SessionConfig holds session token configuration
type SessionConfig struct {
	Secret        string
	SecureCookies bool
	MaxAge        time.Duration
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, loading a .env
// file first if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			UpstreamURL:  getEnv("APP_UPSTREAM_URL", ""),
			AppName:      getEnv("APP_NAME", "The Hub"),
			AppColor:     getEnv("APP_PRIMARY_COLOR", "#1f2937"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "churchhub_central"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Type:    getEnv("CACHE_TYPE", "memory"),
			TTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Tenant: TenantConfig{
			BaseDomain: getEnv("PLATFORM_DOMAIN", "churchhub.dev"),
		},
		MP: MPConfig{
			Domain:       getEnv("MINISTRY_PLATFORM_DOMAIN", ""),
			ClientID:     getEnv("MINISTRY_PLATFORM_CLIENT_ID", ""),
			ClientSecret: getEnv("MINISTRY_PLATFORM_CLIENT_SECRET", ""),
			FileURL:      getEnv("MINISTRY_PLATFORM_FILE_URL", ""),
			AdminRoleID:  getEnvInt("ADMIN_SECURITY_ROLE_ID", 0),
			RedirectURI:  getEnv("OAUTH_REDIRECT_URI", ""),
		},
		Session: SessionConfig{
			Secret:        getEnv("SESSION_SECRET", ""),
			SecureCookies: getEnvBool("SESSION_SECURE_COOKIES", true),
			MaxAge:        getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Tenant.BaseDomain == "" {
		return fmt.Errorf("PLATFORM_DOMAIN is required")
	}
	if c.Cache.Enabled && c.Cache.Type != "redis" && c.Cache.Type != "memory" {
		return fmt.Errorf("CACHE_TYPE must be \"redis\" or \"memory\", got %q", c.Cache.Type)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}
