package config

import (
	"os"
	"strconv"
)

// FromEnv overlays TICKQ_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("TICKQ_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TICKQ_DEFAULT_QUEUE"); v != "" {
		cfg.DefaultQueue = v
	}
	if v := os.Getenv("TICKQ_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("TICKQ_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("TICKQ_STORE_BUCKET"); v != "" {
		cfg.Store.Bucket = v
	}
	if v := os.Getenv("TICKQ_STORE_PREFIX"); v != "" {
		cfg.Store.Prefix = v
	}
	if v := os.Getenv("TICKQ_STORE_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("TICKQ_STORE_FSYNC"); v != "" {
		cfg.Store.Fsync = v
	}
	if v := os.Getenv("TICKQ_LEDGER_NAME"); v != "" {
		cfg.Store.LedgerName = v
	}
	if v := os.Getenv("TICKQ_TICK_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TickIntervalSeconds = n
		}
	}
	if v := os.Getenv("TICKQ_RUNNER_BASE_URL"); v != "" {
		cfg.Batch.RunnerBaseURL = v
	}
	if v := os.Getenv("TICKQ_LAUNCH_LAG_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.LaunchLagMs = n
		}
	}
	if v := os.Getenv("TICKQ_VISIBILITY_WAIT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.VisibilityWaitSeconds = n
		}
	}
	if v := os.Getenv("TICKQ_VISIBILITY_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.VisibilityIntervalSeconds = n
		}
	}
	if v := os.Getenv("TICKQ_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TICKQ_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
