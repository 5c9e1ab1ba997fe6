// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	API       APIConfig
	ImageHost ImageHostConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Cache     CacheConfig
}

// DatabaseConfig holds settings of the MySQL lesson progress store
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// APIConfig holds the remote Course and Auth API settings
type APIConfig struct {
	CourseBaseURL string
	AuthBaseURL   string
	Timeout       time.Duration
}

// ImageHostConfig holds thumbnail upload settings
type ImageHostConfig struct {
	BaseURL string
	APIKey  string
}

// JWTConfig holds session token settings. An empty secret disables
// signature verification.
type JWTConfig struct {
	Secret string
}

// RedisConfig holds the course cache connection. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds course cache behaviour
type CacheConfig struct {
	TTL            time.Duration
	WarmupSchedule string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Database configuration
	cfg.Database.Host = os.Getenv("DB_HOST")
	if cfg.Database.Host == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}

	dbPort, err := intEnv("DB_PORT", 3306)
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = dbPort

	cfg.Database.User = os.Getenv("DB_USER")
	if cfg.Database.User == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.Password = os.Getenv("DB_PASSWORD")

	cfg.Database.DBName = os.Getenv("DB_NAME")
	if cfg.Database.DBName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}

	// Server configuration
	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	cfg.Logging.Level = stringEnv("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Remote API configuration
	cfg.API.CourseBaseURL = strings.TrimRight(os.Getenv("COURSE_API_BASE_URL"), "/")
	if cfg.API.CourseBaseURL == "" {
		return nil, fmt.Errorf("COURSE_API_BASE_URL is required")
	}
	cfg.API.AuthBaseURL = strings.TrimRight(stringEnv("AUTH_API_BASE_URL", cfg.API.CourseBaseURL), "/")

	timeout, err := durationEnv("API_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.API.Timeout = timeout

	// Image host configuration
	cfg.ImageHost.BaseURL = strings.TrimRight(stringEnv("IMGBB_BASE_URL", "https://api.imgbb.com"), "/")
	cfg.ImageHost.APIKey = os.Getenv("IMGBB_API_KEY")

	// JWT configuration
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")

	// Redis configuration
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.Redis.DB = redisDB

	// Cache configuration
	ttl, err := durationEnv("CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Cache.TTL = ttl
	cfg.Cache.WarmupSchedule = os.Getenv("CATALOG_WARMUP_SCHEDULE")

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// durationEnv accepts a Go duration ("30s") or a bare number of seconds
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseOrigins splits a comma-separated origin list, allowing every origin
// when the list is empty
func parseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
