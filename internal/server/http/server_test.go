package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/ivana-meshed/mmm-app-sub001/internal/config"
	"github.com/ivana-meshed/mmm-app-sub001/internal/queue"
	"github.com/ivana-meshed/mmm-app-sub001/internal/runtime"
)

func newTestServer(t *testing.T, mutate func(*cfgpkg.Config)) *Server {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Store.Backend = cfgpkg.BackendMemory
	cfg.Log.Level = "error"
	if mutate != nil {
		mutate(&cfg)
	}
	rt, err := runtime.Open(cfg)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return New(rt)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/v1/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestTickEmptyQueue(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/v1/tick", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("tick: %d %s", rec.Code, rec.Body)
	}
	var res queue.TickResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.OK || res.Message != "empty queue" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEnqueueSnapshotRemove(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/queues/enqueue", `{"params":{"country":"DE"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue: %d %s", rec.Code, rec.Body)
	}
	var ent queue.JobEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &ent); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if ent.ID != 1 || ent.Status != queue.StatusPending {
		t.Fatalf("unexpected entry: %+v", ent)
	}

	rec = do(t, s, http.MethodGet, "/v1/queues", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: %d %s", rec.Code, rec.Body)
	}
	var doc queue.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if len(doc.Entries) != 1 || !doc.QueueRunning {
		t.Fatalf("unexpected document: %+v", doc)
	}

	rec = do(t, s, http.MethodPost, "/v1/queues/remove", `{"id":1}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, s, http.MethodPost, "/v1/queues/remove", `{"id":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second remove should 404: %d %s", rec.Code, rec.Body)
	}
}

func TestEnqueueRejectsBadParams(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/v1/queues/enqueue", `{"queue":"Bad Name","params":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad queue name: %d %s", rec.Code, rec.Body)
	}
}

func TestPauseAndResume(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/v1/queues/enqueue", `{"params":{}}`)

	rec := do(t, s, http.MethodPost, "/v1/queues/pause", `{}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("pause: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, s, http.MethodPost, "/v1/tick", "")
	var res queue.TickResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Message != "queue is paused" {
		t.Fatalf("paused queue ticked: %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/v1/queues/resume", `{}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("resume: %d %s", rec.Code, rec.Body)
	}
}

func TestEntriesWithFilter(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/v1/queues/enqueue", `{"params":{"country":"DE"}}`)
	do(t, s, http.MethodPost, "/v1/queues/enqueue", `{"params":{"country":"FR"}}`)

	rec := do(t, s, http.MethodGet, "/v1/queues/entries?filter="+`params.country%20==%20%22FR%22`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("entries: %d %s", rec.Code, rec.Body)
	}
	var out struct {
		Entries []*queue.JobEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entries) != 1 || out.Entries[0].ID != 2 {
		t.Fatalf("unexpected entries: %+v", out.Entries)
	}

	rec = do(t, s, http.MethodGet, "/v1/queues/entries?filter=status%20==", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter accepted: %d", rec.Code)
	}
}

func TestTickAgainstRunnerBackend(t *testing.T) {
	// Full round trip: HTTP tick drives the engine, which launches on a fake
	// runner and then reconciles from it.
	state := "RUNNING"
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/jobs":
			writeJSON(w, http.StatusCreated, map[string]string{
				"execution_name": "exec-1",
				"timestamp":      "20260825-120000",
				"gcs_prefix":     "runs/exec-1",
			})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/executions/"):
			writeJSON(w, http.StatusOK, map[string]string{"state": state, "message": "ok"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	s := newTestServer(t, func(cfg *cfgpkg.Config) {
		cfg.Batch.RunnerBaseURL = backend.URL
		cfg.Batch.LaunchLagMs = 0
	})

	do(t, s, http.MethodPost, "/v1/queues/enqueue", `{"params":{"country":"DE"}}`)

	rec := do(t, s, http.MethodPost, "/v1/tick", "")
	var res queue.TickResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.OK || !res.Changed {
		t.Fatalf("launch tick: %+v", res)
	}

	// Execution finishes; the next tick reconciles to SUCCEEDED and the
	// archive sweep moves the entry into the ledger.
	state = "SUCCEEDED"
	rec = do(t, s, http.MethodPost, "/v1/tick", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.OK || !res.Changed {
		t.Fatalf("reconcile tick: %+v", res)
	}

	rec = do(t, s, http.MethodGet, "/v1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d %s", rec.Code, rec.Body)
	}
	var hist struct {
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Rows) != 1 || hist.Rows[0]["state"] != "SUCCEEDED" || hist.Rows[0]["country"] != "DE" {
		t.Fatalf("unexpected history: %+v", hist.Rows)
	}

	rec = do(t, s, http.MethodGet, "/v1/queues", "")
	var doc queue.Document
	_ = json.Unmarshal(rec.Body.Bytes(), &doc)
	if len(doc.Entries) != 0 {
		t.Fatalf("entry not archived out of the live document: %+v", doc.Entries)
	}
}
