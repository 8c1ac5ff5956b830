package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	ScanSchedule    string
	ScanParallelism int
	CriteriaFile    string
}

func Load() Config {
	return Config{
		Port:            envInt("GRADER_PORT", 8760),
		NatsURL:         envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		ScanSchedule:    envStr("GRADER_SCAN_SCHEDULE", "0 3 * * *"),
		ScanParallelism: envInt("GRADER_SCAN_PARALLELISM", 8),
		CriteriaFile:    envStr("GRADER_CRITERIA_FILE", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
