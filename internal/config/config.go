// Package config reads the cfgseed server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string // CFGSEED_DATABASE_URL (required)
	GRPCAddr    string // CFGSEED_GRPC_ADDR (default ":9090")
	HTTPAddr    string // CFGSEED_HTTP_ADDR (default ":8080")
	NATSURL     string // CFGSEED_NATS_URL (optional, empty = no events)
	AuthToken   string // CFGSEED_AUTH_TOKEN (optional, empty = auth disabled)
	PolicyFile  string // CFGSEED_POLICY_FILE (optional, empty = built-in policy)

	Env       string // CFGSEED_ENV (default "development")
	LogFormat string // CFGSEED_LOG_FORMAT ("json" or "text"; default by Env)
	LogLevel  string // CFGSEED_LOG_LEVEL (default "info")

	// Sync settings
	SyncInterval   time.Duration // CFGSEED_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // CFGSEED_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // CFGSEED_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // CFGSEED_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // CFGSEED_SYNC_S3_KEY (default "cfgseed/configs.jsonl")
	SyncGitRepo    string        // CFGSEED_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // CFGSEED_SYNC_GIT_FILE (default "configs.jsonl")
	SyncGitBranch  string        // CFGSEED_SYNC_GIT_BRANCH (default "main")
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("CFGSEED_DATABASE_URL"),
		GRPCAddr:       envOrDefault("CFGSEED_GRPC_ADDR", ":9090"),
		HTTPAddr:       envOrDefault("CFGSEED_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("CFGSEED_NATS_URL"),
		AuthToken:      os.Getenv("CFGSEED_AUTH_TOKEN"),
		PolicyFile:     os.Getenv("CFGSEED_POLICY_FILE"),
		Env:            envOrDefault("CFGSEED_ENV", "development"),
		LogFormat:      os.Getenv("CFGSEED_LOG_FORMAT"),
		LogLevel:       envOrDefault("CFGSEED_LOG_LEVEL", "info"),
		SyncS3Bucket:   os.Getenv("CFGSEED_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("CFGSEED_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("CFGSEED_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("CFGSEED_SYNC_S3_KEY", "cfgseed/configs.jsonl"),
		SyncGitRepo:    os.Getenv("CFGSEED_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("CFGSEED_SYNC_GIT_FILE", "configs.jsonl"),
		SyncGitBranch:  envOrDefault("CFGSEED_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("CFGSEED_DATABASE_URL is required")
	}

	if v := os.Getenv("CFGSEED_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CFGSEED_SYNC_INTERVAL: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("CFGSEED_SYNC_INTERVAL: must not be negative")
		}
		c.SyncInterval = d
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
