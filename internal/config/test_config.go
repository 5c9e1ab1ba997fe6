package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the progress store settings for integration tests from
// TEST_DB_* variables. When any of them is missing, the returned Config has an
// empty Database section and callers skip the database-backed tests.
func LoadTestConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	required := map[string]*string{
		"TEST_DB_HOST": &cfg.Database.Host,
		"TEST_DB_USER": &cfg.Database.User,
		"TEST_DB_NAME": &cfg.Database.DBName,
	}
	for key, dst := range required {
		v := os.Getenv(key)
		if v == "" {
			return &Config{}, nil
		}
		*dst = v
	}
	cfg.Database.Password = os.Getenv("TEST_DB_PASSWORD")

	port, err := intEnv("TEST_DB_PORT", 3306)
	if err != nil {
		return nil, fmt.Errorf("failed to load test config: %w", err)
	}
	cfg.Database.Port = port

	return cfg, nil
}

// HasDatabase reports whether a database is configured
func (c *Config) HasDatabase() bool {
	return c.Database.Host != "" && c.Database.DBName != ""
}
