package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every externally tunable knob of the engine. Values are
// loaded once per process from the environment; nothing here is a hidden
// module-level constant.
type Config struct {
	// Server
	Port string
	Host string

	// Trend windows and thresholds
	BaselineMonths int
	RecentMonths   int
	LargeThreshold float64
	LossRatio      float64
	InactiveDays   int

	// Categorization cache
	CacheTTL time.Duration

	// AI oracle
	AIEnabled bool
	AIModel   string
	AIWorkers int

	// Job queue
	QueueBuffer int
	JobWorkers  int

	// BigQuery
	BQProject string
	BQDataset string

	// GCS record uploads
	GCSBucket string

	// Notion sync (optional)
	NotionToken      string
	NotionDatabaseID string
}

// Load reads the configuration from the environment, applying production
// defaults for anything unset.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),
		Host: getEnv("HOST", "0.0.0.0"),

		BaselineMonths: getEnvInt("BASELINE_MONTHS", 8),
		RecentMonths:   getEnvInt("RECENT_MONTHS", 3),
		LargeThreshold: getEnvFloat("LARGE_THRESHOLD", 1.0),
		LossRatio:      getEnvFloat("LOSS_RATIO", 0.25),
		InactiveDays:   getEnvInt("INACTIVE_DAYS", 90),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_DAYS", 30)) * 24 * time.Hour,

		AIEnabled: getEnvBool("AI_ENABLED", false),
		AIModel:   getEnv("AI_MODEL", ""),
		AIWorkers: getEnvInt("AI_WORKERS", 4),

		QueueBuffer: getEnvInt("QUEUE_BUFFER", 100),
		JobWorkers:  getEnvInt("JOB_WORKERS", 2),

		BQProject: getEnv("BQ_PROJECT", ""),
		BQDataset: getEnv("BQ_DATASET", "salesblitz"),

		GCSBucket: getEnv("GCS_BUCKET", ""),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
