package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ivana-meshed/mmm-app-sub001/internal/batch"
	"github.com/ivana-meshed/mmm-app-sub001/internal/ledger"
	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
	logpkg "github.com/ivana-meshed/mmm-app-sub001/pkg/log"
)

// Archive sweeps terminal entries out of the live document into the history
// ledger and persists the trimmed document with a guarded write. The ledger
// upsert runs before the trim, so a conflict-forced redo re-merges the same
// rows idempotently instead of losing them.
//
// When the trim leaves pending work on a running queue with nothing active,
// one follow-up tick is chained immediately so the queue does not idle until
// the next external trigger. Its result is returned alongside the count of
// archived entries.
func (e *Engine) Archive(ctx context.Context, queue string, launcher batch.Launcher, poller batch.StatusPoller, launchLag time.Duration) (int, *TickResult, error) {
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		doc, gen, err := e.docs.Load(ctx, queue)
		if err != nil {
			return 0, nil, fmt.Errorf("queue %s: archive load: %w", queue, err)
		}
		terminal := doc.TerminalEntries()
		if len(terminal) == 0 {
			return 0, nil, nil
		}

		rows := make([]ledger.Row, 0, len(terminal))
		ids := make([]int64, 0, len(terminal))
		for _, ent := range terminal {
			rows = append(rows, ledgerRow(ent, e.docs.now().UTC()))
			ids = append(ids, ent.ID)
		}
		if err := e.ledger.Upsert(ctx, queue, rows); err != nil {
			return 0, nil, fmt.Errorf("queue %s: archive: %w", queue, err)
		}

		doc.RemoveEntries(ids)
		if err := e.docs.Save(ctx, queue, doc, gen); err != nil {
			if errors.Is(err, storepkg.ErrConflict) {
				continue
			}
			return 0, nil, fmt.Errorf("queue %s: archive save: %w", queue, err)
		}
		e.logger.Info("archived entries", logpkg.Str("queue", queue), logpkg.Int("count", len(ids)))

		var chained *TickResult
		if doc.QueueRunning && doc.FirstPending() != nil {
			if active, aerr := doc.ActiveEntry(); aerr == nil && active == nil {
				res := e.Tick(ctx, queue, launcher, poller, launchLag)
				chained = &res
			}
		}
		return len(ids), chained, nil
	}
	return 0, nil, fmt.Errorf("queue %s: archive: %w", queue, ErrContention)
}

// RunOnce performs one tick followed by an archive sweep. This is the unit of
// work behind every external trigger.
func (e *Engine) RunOnce(ctx context.Context, queue string, launcher batch.Launcher, poller batch.StatusPoller, launchLag time.Duration) TickResult {
	res := e.Tick(ctx, queue, launcher, poller, launchLag)

	archived, chained, err := e.Archive(ctx, queue, launcher, poller, launchLag)
	if err != nil {
		e.logger.Warn("archive sweep failed", logpkg.Str("queue", queue), logpkg.Err(err))
		return res
	}
	if chained != nil {
		e.logger.Info("chained follow-up tick",
			logpkg.Str("queue", queue),
			logpkg.Int("archived", archived),
			logpkg.Bool("changed", chained.Changed),
			logpkg.Str("message", chained.Message))
	}
	return res
}

// ledgerRow flattens a terminal entry into ledger columns: the fixed outcome
// columns plus one column per top-level params key. Fixed columns win on
// collision.
func ledgerRow(ent *JobEntry, archivedAt time.Time) ledger.Row {
	values := map[string]string{
		"state":          string(ent.Status),
		"timestamp":      ent.Timestamp,
		"execution_name": ent.ExecutionName,
		"gcs_prefix":     ent.GCSPrefix,
		"message":        ent.Message,
		"submitted_at":   ent.SubmittedAt,
		"started_at":     ent.StartedAt,
		"finished_at":    ent.FinishedAt,
		"duration_s":     durationSeconds(ent.StartedAt, ent.FinishedAt),
		"archived_at":    archivedAt.Format(time.RFC3339),
	}

	var params map[string]json.RawMessage
	if err := json.Unmarshal(ent.Params, &params); err == nil {
		for key, raw := range params {
			if _, fixed := values[key]; fixed || key == "job_id" {
				continue
			}
			values[key] = flattenParam(raw)
		}
	}
	return ledger.Row{JobID: ent.ID, Values: values}
}

// durationSeconds renders the started-to-finished span in whole seconds, or
// empty when either bound is missing or unparsable.
func durationSeconds(started, finished string) string {
	from, err := time.Parse(time.RFC3339, started)
	if err != nil {
		return ""
	}
	to, err := time.Parse(time.RFC3339, finished)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(int64(to.Sub(from).Seconds()), 10)
}

// flattenParam renders a params value as a CSV cell. Strings are unquoted;
// everything else keeps its JSON encoding.
func flattenParam(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return string(raw)
}
