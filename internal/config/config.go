package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // ROOMSTORE_DATABASE_URL (required)
	NATSURL     string // ROOMSTORE_NATS_URL (optional, empty = no bus)
	ServerName  string // ROOMSTORE_SERVER_NAME (default "localhost")

	// Journal sync settings
	SyncInterval   time.Duration // ROOMSTORE_SYNC_INTERVAL (default 5m; 0 = disabled)
	SyncS3Bucket   string        // ROOMSTORE_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // ROOMSTORE_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // ROOMSTORE_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // ROOMSTORE_SYNC_S3_KEY (default "roomstore/journal.jsonl")
	SyncGitRepo    string        // ROOMSTORE_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // ROOMSTORE_SYNC_GIT_FILE (default "journal.jsonl")
	SyncGitBranch  string        // ROOMSTORE_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("ROOMSTORE_DATABASE_URL"),
		NATSURL:        os.Getenv("ROOMSTORE_NATS_URL"),
		ServerName:     envOrDefault("ROOMSTORE_SERVER_NAME", "localhost"),
		SyncS3Bucket:   os.Getenv("ROOMSTORE_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("ROOMSTORE_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("ROOMSTORE_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("ROOMSTORE_SYNC_S3_KEY", "roomstore/journal.jsonl"),
		SyncGitRepo:    os.Getenv("ROOMSTORE_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("ROOMSTORE_SYNC_GIT_FILE", "journal.jsonl"),
		SyncGitBranch:  envOrDefault("ROOMSTORE_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("ROOMSTORE_DATABASE_URL is required")
	}

	intervalStr := envOrDefault("ROOMSTORE_SYNC_INTERVAL", "5m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("ROOMSTORE_SYNC_INTERVAL: %w", err)
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
