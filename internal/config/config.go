// Package config loads application configuration from the environment using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSecretKey is used when SECRET_KEY is unset. It is rejected in production.
const DefaultSecretKey = "change-this-secret-key-in-production"

// Config holds application configuration loaded from the environment.
type Config struct {
	Port        string `mapstructure:"PORT"`
	APIPrefix   string `mapstructure:"API_PREFIX"`
	Environment string `mapstructure:"ENVIRONMENT"`

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns       int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns       int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMin int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL      string `mapstructure:"REDIS_URL"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisEnabled  bool   `mapstructure:"REDIS_ENABLED"`

	SecretKey                string `mapstructure:"SECRET_KEY"`
	Algorithm                string `mapstructure:"ALGORITHM"`
	AccessTokenExpireMinutes int    `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	BcryptCost               int    `mapstructure:"BCRYPT_COST"`

	// AllowedOriginsRaw is a comma-separated list; see AllowedOrigins.
	AllowedOriginsRaw string `mapstructure:"ALLOWED_ORIGINS"`
	FrontendURL       string `mapstructure:"FRONTEND_URL"`

	WSWriteTimeout  time.Duration `mapstructure:"WS_WRITE_TIMEOUT"`
	HistoryLimit    int           `mapstructure:"HISTORY_LIMIT"`
	UserCacheTTL    time.Duration `mapstructure:"USER_CACHE_TTL"`
	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`
}

// Load builds and validates Config from the environment. Callers load .env
// beforehand (godotenv); variables already set win.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "9000")
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("SECRET_KEY", DefaultSecretKey)
	v.SetDefault("ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 1440)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("WS_WRITE_TIMEOUT", "10s")
	v.SetDefault("HISTORY_LIMIT", 5)
	v.SetDefault("USER_CACHE_TTL", "5m")
	v.SetDefault("CLEANUP_INTERVAL", "1h")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		return nil, errors.New("config: PORT must be set")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("config: SECRET_KEY must not be empty")
	}
	if cfg.IsProduction() && cfg.SecretKey == DefaultSecretKey {
		return nil, errors.New("config: SECRET_KEY must be set when ENVIRONMENT=production")
	}
	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set when ENVIRONMENT=production")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if !strings.HasPrefix(cfg.APIPrefix, "/") {
		cfg.APIPrefix = "/" + cfg.APIPrefix
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")

	return &cfg, nil
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// AccessTTL is the access token lifetime. Returns 24h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	if c.AccessTokenExpireMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// ConnMaxLifetime is DB_CONN_MAX_LIFETIME_MINUTES as a duration.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeMin) * time.Minute
}

// AllowedOrigins returns the frontend URL, the local dev server and any extra
// comma-separated origins.
func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	if !c.IsProduction() {
		origins = append(origins, "http://localhost:5173")
	}
	for _, origin := range strings.Split(c.AllowedOriginsRaw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// GoogleEnabled reports whether Google login is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}
