package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration from environment variables.
type Config struct {
	Port        int
	DBPath      string
	NetworkPath string
	GTFSDir     string
	GTFSURL     string // overrides the URL of a single configured feed
	GTFSRefresh time.Duration

	RealtimeURL    string // GTFS-RT trip updates; empty disables live data
	AlertsURL      string // GTFS-RT service alerts; optional
	RealtimePeriod time.Duration

	TestMode    bool
	Verbose     bool // CLI flag: debug logging
	RefreshOnly bool // CLI flag: rebuild GTFS data, then exit
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:           envInt("TRAINQUERY_PORT", 8080),
		DBPath:         envStr("TRAINQUERY_DB_PATH", "./trainquery.db"),
		NetworkPath:    envStr("TRAINQUERY_NETWORK_PATH", "./network.yaml"),
		GTFSDir:        envStr("TRAINQUERY_GTFS_DIR", "./data"),
		GTFSURL:        envStr("TRAINQUERY_GTFS_URL", ""),
		GTFSRefresh:    envDuration("TRAINQUERY_GTFS_REFRESH", 24*time.Hour),
		RealtimeURL:    envStr("TRAINQUERY_REALTIME_URL", ""),
		AlertsURL:      envStr("TRAINQUERY_ALERTS_URL", ""),
		RealtimePeriod: envDuration("TRAINQUERY_REALTIME_PERIOD", 30*time.Second),
		TestMode:       envBool("TRAINQUERY_TEST_MODE", false),
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
