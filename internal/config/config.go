package config

import (
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DatabaseURL string
	Port        string
	// ChunkSize bounds how many row attempts are committed in one
	// transaction during ingestion. Chunk boundaries are also progress
	// checkpoints.
	ChunkSize  int
	LogLevel   string
	CORSOrigin string
}

func New() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg := &Config{
		DatabaseURL: databaseURL,
		Port:        "8080",
		ChunkSize:   100,
		LogLevel:    "info",
		CORSOrigin:  "http://localhost:3000",
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}

	var err error
	cfg.ChunkSize, err = getEnvAsInt("CHUNK_SIZE", cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}

	return cfg, nil
}

// OpenDB connects to Postgres through gorm using the configured URL.
func (c *Config) OpenDB() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(c.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func getEnvAsInt(name string, defaultVal int) (int, error) {
	valueStr := os.Getenv(name)
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", name, valueStr)
	}
	return value, nil
}
