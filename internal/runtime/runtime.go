package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ivana-meshed/mmm-app-sub001/internal/batch"
	"github.com/ivana-meshed/mmm-app-sub001/internal/batch/runner"
	cfgpkg "github.com/ivana-meshed/mmm-app-sub001/internal/config"
	"github.com/ivana-meshed/mmm-app-sub001/internal/ledger"
	"github.com/ivana-meshed/mmm-app-sub001/internal/queue"
	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
	gcsstore "github.com/ivana-meshed/mmm-app-sub001/internal/store/gcs"
	memstore "github.com/ivana-meshed/mmm-app-sub001/internal/store/memory"
	pebblestore "github.com/ivana-meshed/mmm-app-sub001/internal/store/pebble"
	logpkg "github.com/ivana-meshed/mmm-app-sub001/pkg/log"
)

// Runtime wires the store driver, engine, and batch adapters for a
// single-node instance.
type Runtime struct {
	store    storepkg.Store
	engine   *queue.Engine
	launcher batch.Launcher
	poller   batch.StatusPoller
	config   cfgpkg.Config
	logger   logpkg.Logger
}

// Open builds the configured store driver and wires everything on top of it.
func Open(cfg cfgpkg.Config) (*Runtime, error) {
	logger, err := logpkg.ApplyConfig(&cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	docs := queue.NewDocStore(st, cfg.Store.Prefix)
	led := ledger.New(st, cfg.Store.Prefix, ledger.WithName(cfg.Store.LedgerName))
	engine := queue.NewEngine(docs, led, logger, queue.WithMaxRetries(cfg.MaxRetries))

	rt := &Runtime{
		store:  st,
		engine: engine,
		config: cfg,
		logger: logger,
	}
	if cfg.Batch.RunnerBaseURL != "" {
		client, err := runner.New(runner.Options{BaseURL: cfg.Batch.RunnerBaseURL})
		if err != nil {
			st.Close()
			return nil, err
		}
		rt.launcher = visibilityLauncher(client, client, cfg, logger)
		rt.poller = client
	}
	return rt, nil
}

// visibilityLauncher wraps a launcher so that, when configured, a launch waits
// for the execution record to become queryable before the tick persists it.
// Visibility is best effort; a wait failure does not fail the launch.
func visibilityLauncher(l batch.Launcher, p batch.StatusPoller, cfg cfgpkg.Config, logger logpkg.Logger) batch.Launcher {
	maxWait, interval := cfg.VisibilityWait()
	if maxWait <= 0 {
		return l
	}
	return batch.LauncherFunc(func(ctx context.Context, params json.RawMessage) (batch.LaunchResult, error) {
		res, err := l.Launch(ctx, params)
		if err != nil {
			return res, err
		}
		if _, werr := batch.WaitVisible(ctx, p, res.ExecutionName, maxWait, interval); werr != nil {
			logger.Warn("visibility wait failed",
				logpkg.Str("execution", res.ExecutionName), logpkg.Err(werr))
		}
		return res, nil
	})
}

func openStore(cfg cfgpkg.Config) (storepkg.Store, error) {
	switch cfg.Store.Backend {
	case cfgpkg.BackendGCS:
		return gcsstore.Open(context.Background(), gcsstore.Options{Bucket: cfg.Store.Bucket})
	case cfgpkg.BackendPebble:
		return pebblestore.Open(pebblestore.Options{
			DataDir: cfg.Store.DataDir,
			Fsync:   fsyncMode(cfg.Store.Fsync),
		})
	case cfgpkg.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("runtime: unknown store backend %q", cfg.Store.Backend)
	}
}

func fsyncMode(name string) pebblestore.FsyncMode {
	switch name {
	case "interval":
		return pebblestore.FsyncModeInterval
	case "never":
		return pebblestore.FsyncModeNever
	default:
		return pebblestore.FsyncModeAlways
	}
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth verifies the store answers a read.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	_, _, err := r.store.Load(ctx, r.config.Store.Prefix+"healthz")
	if err != nil && !errors.Is(err, storepkg.ErrNotFound) {
		return err
	}
	return nil
}

// Engine returns the queue engine.
func (r *Runtime) Engine() *queue.Engine { return r.engine }

// Launcher returns the configured batch launcher, or nil when launching is
// disabled.
func (r *Runtime) Launcher() batch.Launcher { return r.launcher }

// Poller returns the configured status poller, or nil.
func (r *Runtime) Poller() batch.StatusPoller { return r.poller }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the runtime logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }
