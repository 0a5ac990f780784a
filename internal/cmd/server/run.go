package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgpkg "github.com/ivana-meshed/mmm-app-sub001/internal/config"
	"github.com/ivana-meshed/mmm-app-sub001/internal/queue"
	"github.com/ivana-meshed/mmm-app-sub001/internal/runtime"
	httpserver "github.com/ivana-meshed/mmm-app-sub001/internal/server/http"
	logpkg "github.com/ivana-meshed/mmm-app-sub001/pkg/log"
)

// Run opens the runtime and serves the HTTP API until ctx is cancelled.
func Run(ctx context.Context, cfg cfgpkg.Config) error {
	// Be robust to callers that don't pass a signal-aware context; layer a
	// local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.Open(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger := rt.Logger()
	// Redirect stdlib logs (e.g. Pebble) to our logger.
	logpkg.RedirectStdLog(logger)

	logger.Info("starting tickq server",
		logpkg.Str("http", cfg.ListenAddr),
		logpkg.Str("backend", cfg.Store.Backend),
		logpkg.Str("queue", cfg.DefaultQueue),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	hsrv := httpserver.New(rt)
	errCh := make(chan error, 1)
	go func() { errCh <- hsrv.ListenAndServe(sctx, cfg.ListenAddr) }()

	if interval := cfg.TickInterval(); interval > 0 {
		go tickLoop(sctx, interval, func(ctx context.Context) queue.TickResult {
			return rt.Engine().RunOnce(ctx, cfg.DefaultQueue, rt.Launcher(), rt.Poller(), cfg.LaunchLag())
		}, logger)
	}

	select {
	case <-sctx.Done():
		hsrv.Close()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// tickLoop makes the server its own external trigger, running one tick per
// interval until ctx is cancelled.
func tickLoop(ctx context.Context, interval time.Duration, tick func(context.Context) queue.TickResult, logger logpkg.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res := tick(ctx)
			if res.Changed {
				logger.Info("interval tick",
					logpkg.Bool("ok", res.OK),
					logpkg.Str("message", res.Message))
			}
		}
	}
}
