package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Feed     FeedConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionSecret   string
	CORSOrigin      string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	// AutoMigrate switches schema management from the embedded SQL migrations
	// to gorm's AutoMigrate. Local development only.
	AutoMigrate bool
}

// RedisConfig holds the API token store settings. An empty URL disables token auth.
type RedisConfig struct {
	URL      string
	TokenTTL time.Duration
}

// FeedConfig holds feed engine settings
type FeedConfig struct {
	LeaderboardWindow time.Duration
	LeaderboardLimit  int
	PageSize          int
	HotCandidates     int
	RenderCacheSize   int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 20*time.Second),
			SessionSecret:   getEnv("SESSION_SECRET", "secret_key_change_me"),
			CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=karmafeed port=5432 sslmode=disable TimeZone=UTC"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:  getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			TokenTTL: getDurationEnv("TOKEN_TTL", 30*24*time.Hour),
		},
		Feed: FeedConfig{
			LeaderboardWindow: getDurationEnv("LEADERBOARD_WINDOW", 24*time.Hour),
			LeaderboardLimit:  getIntEnv("LEADERBOARD_LIMIT", 5),
			PageSize:          getIntEnv("FEED_PAGE_SIZE", 30),
			HotCandidates:     getIntEnv("FEED_HOT_CANDIDATES", 200),
			RenderCacheSize:   getIntEnv("RENDER_CACHE_SIZE", 2048),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Feed.LeaderboardWindow <= 0 {
		return fmt.Errorf("LEADERBOARD_WINDOW must be positive")
	}
	if c.Feed.LeaderboardLimit <= 0 {
		return fmt.Errorf("LEADERBOARD_LIMIT must be positive")
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("FEED_PAGE_SIZE must be positive")
	}
	if c.Feed.RenderCacheSize <= 0 {
		return fmt.Errorf("RENDER_CACHE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
