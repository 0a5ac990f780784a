package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ivana-meshed/mmm-app-sub001/internal/batch"
	"github.com/ivana-meshed/mmm-app-sub001/internal/ledger"
	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
	logpkg "github.com/ivana-meshed/mmm-app-sub001/pkg/log"
)

// defaultMaxRetries bounds how many times a tick restarts after a write
// conflict before giving up and asking the caller to try again later.
const defaultMaxRetries = 3

// TickResult is the outcome of one tick, returned verbatim on the trigger
// surface.
type TickResult struct {
	OK      bool   `json:"ok"`
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}

// Engine executes the tick protocol. It holds no per-queue state between
// calls; everything durable lives in the queue document.
type Engine struct {
	docs       *DocStore
	ledger     *ledger.Ledger
	logger     logpkg.Logger
	maxRetries int
	sleep      func(time.Duration)
}

// EngineOption tunes an Engine.
type EngineOption func(*Engine)

// WithMaxRetries overrides the conflict retry bound.
func WithMaxRetries(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithSleep replaces the settling sleep, for tests.
func WithSleep(fn func(time.Duration)) EngineOption {
	return func(e *Engine) { e.sleep = fn }
}

// NewEngine builds an engine over the document store and history ledger.
func NewEngine(docs *DocStore, led *ledger.Ledger, logger logpkg.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	e := &Engine{
		docs:       docs,
		ledger:     led,
		logger:     logger.With(logpkg.Component("engine")),
		maxRetries: defaultMaxRetries,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick runs the scheduling algorithm once: either reconcile the single active
// entry against the backend, or lease and launch the first pending entry.
// Exactly one guarded mutation is attempted per successful pass; conflicting
// writes restart the decision from a fresh load, bounded by maxRetries.
// launchLag is the backend's documented settling delay applied after a
// successful launch before the execution is expected to be queryable.
func (e *Engine) Tick(ctx context.Context, queue string, launcher batch.Launcher, poller batch.StatusPoller, launchLag time.Duration) TickResult {
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		doc, gen, err := e.docs.Load(ctx, queue)
		if err != nil {
			return TickResult{Message: fmt.Sprintf("load failed: %v", err)}
		}
		if len(doc.Entries) == 0 {
			return TickResult{OK: true, Message: "empty queue"}
		}
		if !doc.QueueRunning {
			return TickResult{OK: true, Message: "queue is paused"}
		}

		active, err := doc.ActiveEntry()
		if err != nil {
			// Broken invariant (two active entries): refuse to write anything
			// so an operator can repair the document.
			return TickResult{Message: err.Error()}
		}
		if active != nil {
			res, retry := e.reconcile(ctx, queue, doc, gen, active, poller)
			if retry {
				continue
			}
			return res
		}

		pending := doc.FirstPending()
		if pending == nil {
			return TickResult{OK: true, Message: "no pending"}
		}
		if launcher == nil {
			return TickResult{Message: "launcher not provided"}
		}

		// Critical section: lease the entry with the generation read above.
		// Success means this caller exclusively owns the launch; every
		// concurrent tick that raced us fails its own save and re-reads.
		entryID, params := pending.ID, pending.Params
		pending.Status = StatusLaunching
		pending.Message = "launching"
		if err := e.docs.Save(ctx, queue, doc, gen); err != nil {
			if errors.Is(err, storepkg.ErrConflict) {
				continue
			}
			return TickResult{Message: fmt.Sprintf("save failed: %v", err)}
		}
		e.logger.Info("leased entry", logpkg.Str("queue", queue), logpkg.Int64("id", entryID))

		// Lease held. The launch happens exactly once, strictly outside the
		// conflict retry loop.
		return e.launchAndPersist(ctx, queue, entryID, params, launcher, launchLag)
	}
	return TickResult{Message: "contention: retry later"}
}

// stamp renders the current time for the entry lifecycle fields.
func (e *Engine) stamp() string {
	return e.docs.now().UTC().Format(time.RFC3339)
}

// reconcile updates the active entry from the backend poller. The bool result
// requests a restart of the tick loop after a write conflict.
func (e *Engine) reconcile(ctx context.Context, queue string, doc *Document, gen int64, active *JobEntry, poller batch.StatusPoller) (TickResult, bool) {
	if active.Status == StatusLaunching && active.ExecutionName == "" {
		// A concurrent leaseholder's launch is still in flight; there is
		// nothing to poll yet, and writing anything here would race the
		// launch outcome.
		return TickResult{OK: true, Message: "no change"}, false
	}
	if poller == nil {
		return TickResult{Message: "status poller not provided"}, false
	}

	st, perr := poller.Status(ctx, active.ExecutionName)

	var msg string
	changed := false
	switch {
	case perr != nil:
		// An unobservable job is unrecoverable for this engine: no blind
		// re-launch, record the failure instead of leaving the entry stuck.
		active.Status = StatusError
		active.Message = perr.Error()
		active.FinishedAt = e.stamp()
		msg = active.Message
		changed = true
	case st.State.Terminal():
		active.Status = statusFromExec(st.State)
		active.Message = st.Message
		active.FinishedAt = e.stamp()
		msg = st.Message
		if msg == "" {
			msg = string(active.Status)
		}
		changed = true
	case active.Status == StatusLaunching && st.State == batch.StateRunning:
		active.Status = StatusRunning
		if st.Message != "" {
			active.Message = st.Message
		} else {
			active.Message = "running"
		}
		msg = active.Message
		changed = true
	default:
		// Still settling, or still running with nothing new.
	}

	if !changed {
		return TickResult{OK: true, Message: "no change"}, false
	}
	if err := e.docs.Save(ctx, queue, doc, gen); err != nil {
		if errors.Is(err, storepkg.ErrConflict) {
			return TickResult{}, true
		}
		return TickResult{Message: fmt.Sprintf("save failed: %v", err)}, false
	}
	e.logger.Info("reconciled entry",
		logpkg.Str("queue", queue),
		logpkg.Int64("id", active.ID),
		logpkg.Str("status", string(active.Status)))
	return TickResult{OK: true, Changed: true, Message: msg}, false
}

// launchAndPersist invokes the launcher for the leased entry and persists the
// outcome against a freshly loaded generation. Only the cheap document write
// is retried here; the launch itself is never re-invoked.
func (e *Engine) launchAndPersist(ctx context.Context, queue string, entryID int64, params json.RawMessage, launcher batch.Launcher, launchLag time.Duration) TickResult {
	res, lerr := launcher.Launch(ctx, params)

	var status Status
	var message string
	if lerr != nil {
		status = StatusError
		message = "launch failed: " + lerr.Error()
		e.logger.Warn("launch failed", logpkg.Str("queue", queue), logpkg.Int64("id", entryID), logpkg.Err(lerr))
	} else {
		if launchLag > 0 {
			// Backend settling delay before its execution record is queryable.
			e.sleep(launchLag)
		}
		status = StatusRunning
		message = "running"
		e.logger.Info("launched entry",
			logpkg.Str("queue", queue),
			logpkg.Int64("id", entryID),
			logpkg.Str("execution", res.ExecutionName))
	}

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		doc, gen, err := e.docs.Load(ctx, queue)
		if err != nil {
			return TickResult{Message: fmt.Sprintf("launched but load failed: %v", err)}
		}
		ent := doc.Entry(entryID)
		if ent == nil {
			return TickResult{Message: fmt.Sprintf("entry %d disappeared during launch", entryID)}
		}
		if ent.Status.Terminal() {
			// A concurrent reconciliation already finished this entry; its
			// outcome supersedes ours.
			return TickResult{OK: true, Message: "no change"}
		}

		ent.Status = status
		ent.Message = message
		if lerr == nil {
			ent.ExecutionName = res.ExecutionName
			ent.Timestamp = res.Timestamp
			ent.GCSPrefix = res.GCSPrefix
			ent.StartedAt = e.stamp()
		} else {
			ent.FinishedAt = e.stamp()
		}
		if err := e.docs.Save(ctx, queue, doc, gen); err != nil {
			if errors.Is(err, storepkg.ErrConflict) {
				// The document moved under us (e.g. a concurrent tick promoted
				// this entry from its own reconciliation). Re-read and persist
				// the outcome again; the launch is not repeated.
				continue
			}
			return TickResult{Message: fmt.Sprintf("save failed: %v", err)}
		}
		return TickResult{OK: true, Changed: true, Message: message}
	}
	return TickResult{Message: "contention: retry later"}
}
