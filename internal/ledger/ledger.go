package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	storepkg "github.com/ivana-meshed/mmm-app-sub001/internal/store"
)

// fixedColumns lead every ledger, in this order. Columns contributed by job
// params follow, sorted by name.
var fixedColumns = []string{
	"job_id", "state", "submitted_at", "started_at", "finished_at", "duration_s",
	"timestamp", "execution_name", "gcs_prefix", "message", "archived_at",
}

const maxUpsertRetries = 5

// Row is one ledger record keyed by job id. Values maps column name to cell.
type Row struct {
	JobID  int64
	Values map[string]string
}

// Ledger is the append-merge history of completed jobs, stored as one CSV
// object per queue in the same conditional-write store as the queue
// documents. Upserts are idempotent: merging the same row twice produces the
// same ledger as merging it once.
type Ledger struct {
	store  storepkg.Store
	prefix string
	name   string
}

// Option tunes a Ledger.
type Option func(*Ledger)

// WithName overrides the per-queue object name template. The literal {queue}
// is replaced with the queue name.
func WithName(template string) Option {
	return func(l *Ledger) {
		if template != "" {
			l.name = template
		}
	}
}

// New binds a ledger to a store driver under the given key prefix.
func New(s storepkg.Store, prefix string, opts ...Option) *Ledger {
	l := &Ledger{store: s, prefix: prefix, name: "history/{queue}.csv"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) key(queue string) string {
	return l.prefix + strings.ReplaceAll(l.name, "{queue}", queue)
}

// Upsert merges rows into the queue's ledger by job id. Existing non-empty
// cells are preserved; incoming non-empty cells fill gaps. The write is
// guarded by the store generation and retried on conflict, so concurrent
// upserts for different job ids both land without a cross-process lock.
func (l *Ledger) Upsert(ctx context.Context, queue string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	key := l.key(queue)

	for attempt := 0; attempt < maxUpsertRetries; attempt++ {
		data, gen, err := l.store.Load(ctx, key)
		if err != nil && !errors.Is(err, storepkg.ErrNotFound) {
			return fmt.Errorf("ledger: load %s: %w", key, err)
		}

		table, err := parseTable(data)
		if err != nil {
			return err
		}
		for _, row := range rows {
			table.merge(row)
		}

		out, err := table.encode()
		if err != nil {
			return err
		}
		if err := l.store.Save(ctx, key, out, gen); err != nil {
			if errors.Is(err, storepkg.ErrConflict) {
				continue
			}
			return fmt.Errorf("ledger: save %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("ledger: upsert %s: contention", key)
}

// Rows returns the ledger's header and records in job-id order. A queue with
// no history yields the fixed header and no records.
func (l *Ledger) Rows(ctx context.Context, queue string) ([]string, []Row, error) {
	data, _, err := l.store.Load(ctx, l.key(queue))
	if err != nil {
		if errors.Is(err, storepkg.ErrNotFound) {
			return append([]string(nil), fixedColumns...), nil, nil
		}
		return nil, nil, fmt.Errorf("ledger: load %s: %w", l.key(queue), err)
	}
	table, err := parseTable(data)
	if err != nil {
		return nil, nil, err
	}
	return table.header(), table.sortedRows(), nil
}

// table is the in-memory merge form of a ledger CSV.
type table struct {
	extra map[string]struct{} // non-fixed columns present
	rows  map[int64]map[string]string
}

func newTable() *table {
	return &table{extra: make(map[string]struct{}), rows: make(map[int64]map[string]string)}
}

// parseTable reads a ledger CSV, coalescing duplicate job ids by keeping the
// first non-empty value per column.
func parseTable(data []byte) (*table, error) {
	t := newTable()
	if len(data) == 0 {
		return t, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ledger: parse csv: %w", err)
	}
	if len(records) == 0 {
		return t, nil
	}

	cols := records[0]
	idIdx := -1
	for i, c := range cols {
		if c == "job_id" {
			idIdx = i
		}
		if !isFixedColumn(c) {
			t.extra[c] = struct{}{}
		}
	}
	if idIdx < 0 {
		return nil, errors.New("ledger: csv missing job_id column")
	}

	for _, rec := range records[1:] {
		if idIdx >= len(rec) {
			continue
		}
		id, err := strconv.ParseInt(rec[idIdx], 10, 64)
		if err != nil {
			continue
		}
		values := make(map[string]string, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				values[c] = rec[i]
			}
		}
		t.merge(Row{JobID: id, Values: values})
	}
	return t, nil
}

// merge applies first-non-empty-wins semantics per column.
func (t *table) merge(row Row) {
	existing, ok := t.rows[row.JobID]
	if !ok {
		existing = make(map[string]string, len(row.Values)+1)
		t.rows[row.JobID] = existing
	}
	existing["job_id"] = strconv.FormatInt(row.JobID, 10)
	for col, val := range row.Values {
		if col == "job_id" || val == "" {
			continue
		}
		if !isFixedColumn(col) {
			t.extra[col] = struct{}{}
		}
		if existing[col] == "" {
			existing[col] = val
		}
	}
}

func (t *table) header() []string {
	extras := make([]string, 0, len(t.extra))
	for c := range t.extra {
		extras = append(extras, c)
	}
	sort.Strings(extras)
	return append(append([]string(nil), fixedColumns...), extras...)
}

func (t *table) sortedRows() []Row {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Row, 0, len(ids))
	for _, id := range ids {
		out = append(out, Row{JobID: id, Values: t.rows[id]})
	}
	return out
}

func (t *table) encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	cols := t.header()
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("ledger: write csv: %w", err)
	}
	for _, row := range t.sortedRows() {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = row.Values[c]
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("ledger: write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("ledger: write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func isFixedColumn(name string) bool {
	for _, c := range fixedColumns {
		if c == name {
			return true
		}
	}
	return false
}
