package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	logpkg "github.com/ivana-meshed/mmm-app-sub001/pkg/log"
)

// Store backends selectable via Config.Store.Backend.
const (
	BackendGCS    = "gcs"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// StoreConfig selects and parameterizes the document store driver.
type StoreConfig struct {
	Backend string `json:"backend"`
	// Bucket applies to the gcs backend. Prefix is prepended to every object
	// key on any backend and should end with a slash when non-empty.
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	// DataDir and Fsync apply to the pebble backend. Fsync is one of
	// always|interval|never.
	DataDir string `json:"dataDir"`
	Fsync   string `json:"fsync"`
	// LedgerName is the per-queue history object name template; the literal
	// {queue} is replaced with the queue name.
	LedgerName string `json:"ledgerName"`
}

// BatchConfig parameterizes the batch backend adapters.
type BatchConfig struct {
	// RunnerBaseURL is the HTTP batch runner endpoint. Empty disables
	// launching; ticks then only reconcile.
	RunnerBaseURL string `json:"runnerBaseUrl"`
	// LaunchLagMs is the backend's settling delay in milliseconds between a
	// successful launch and its execution record becoming queryable.
	LaunchLagMs int `json:"launchLagMs"`
	// VisibilityWaitSeconds bounds the optional post-launch wait for the
	// execution to become visible. Zero disables the wait.
	VisibilityWaitSeconds     int `json:"visibilityWaitSeconds"`
	VisibilityIntervalSeconds int `json:"visibilityIntervalSeconds"`
}

// Config is the top-level configuration loaded from file and environment.
type Config struct {
	ListenAddr   string `json:"listenAddr"`
	DefaultQueue string `json:"defaultQueue"`
	MaxRetries   int    `json:"maxRetries"`
	// TickIntervalSeconds > 0 makes the server its own external trigger,
	// running one tick per interval on the default queue.
	TickIntervalSeconds int           `json:"tickIntervalSeconds"`
	Store               StoreConfig   `json:"store"`
	Batch               BatchConfig   `json:"batch"`
	Log                 logpkg.Config `json:"log"`
}

// Default returns built-in defaults: a local pebble store and no launcher.
func Default() Config {
	return Config{
		ListenAddr:   ":8080",
		DefaultQueue: "default",
		MaxRetries:   3,
		Store: StoreConfig{
			Backend:    BackendPebble,
			DataDir:    DefaultDataDir(),
			Fsync:      "always",
			LedgerName: "history/{queue}.csv",
		},
		Batch: BatchConfig{
			LaunchLagMs:               10000,
			VisibilityWaitSeconds:     0,
			VisibilityIntervalSeconds: 5,
		},
		Log: logpkg.Config{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON file overlaid on defaults, then applies
// the TICKQ_* environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	FromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot honor.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendGCS:
		if c.Store.Bucket == "" {
			return fmt.Errorf("config: gcs backend requires store.bucket")
		}
	case BackendPebble:
		if c.Store.DataDir == "" {
			return fmt.Errorf("config: pebble backend requires store.dataDir")
		}
		switch c.Store.Fsync {
		case "", "always", "interval", "never":
		default:
			return fmt.Errorf("config: unknown store.fsync %q; use always|interval|never", c.Store.Fsync)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: maxRetries must be at least 1")
	}
	return nil
}

// LaunchLag returns the configured settling delay as a duration.
func (c Config) LaunchLag() time.Duration {
	return time.Duration(c.Batch.LaunchLagMs) * time.Millisecond
}

// TickInterval returns the self-trigger interval; zero disables it.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// VisibilityWait returns the post-launch visibility wait bounds.
func (c Config) VisibilityWait() (maxWait, interval time.Duration) {
	return time.Duration(c.Batch.VisibilityWaitSeconds) * time.Second,
		time.Duration(c.Batch.VisibilityIntervalSeconds) * time.Second
}
