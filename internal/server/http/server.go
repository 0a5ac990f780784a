package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ivana-meshed/mmm-app-sub001/internal/queue"
	"github.com/ivana-meshed/mmm-app-sub001/internal/runtime"
	"github.com/ivana-meshed/mmm-app-sub001/pkg/id"
	logpkg "github.com/ivana-meshed/mmm-app-sub001/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

func New(rt *runtime.Runtime) *Server {
	mux := http.NewServeMux()
	s := &Server{
		rt:     rt,
		logger: rt.Logger().With(logpkg.Component("http")),
	}
	s.srv = &http.Server{Handler: cors(s.requestID(mux))}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/tick", s.handleTick)
	mux.HandleFunc("/v1/queues", s.handleSnapshot)
	mux.HandleFunc("/v1/queues/enqueue", s.handleEnqueue)
	mux.HandleFunc("/v1/queues/entries", s.handleEntries)
	mux.HandleFunc("/v1/queues/pause", s.handlePause)
	mux.HandleFunc("/v1/queues/resume", s.handleResume)
	mux.HandleFunc("/v1/queues/remove", s.handleRemove)
	mux.HandleFunc("/v1/history", s.handleHistory)
	return s
}

// Handler exposes the configured handler chain, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID stamps each response with a unique id for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = id.New().String()
		}
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) queueParam(r *http.Request) string {
	q := r.URL.Query().Get("queue")
	if q == "" {
		q = s.rt.Config().DefaultQueue
	}
	return q
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	var multi *queue.ErrMultipleActive
	switch {
	case errors.Is(err, queue.ErrInvalidQueueName):
		return http.StatusBadRequest
	case errors.As(err, &multi):
		return http.StatusConflict
	case errors.Is(err, queue.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrEntryActive):
		return http.StatusConflict
	case errors.Is(err, queue.ErrContention):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTick runs one tick plus archive sweep and returns the TickResult
// verbatim. POST /v1/tick?queue=<queue>
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.rt.Config()
	res := s.rt.Engine().RunOnce(r.Context(), s.queueParam(r), s.rt.Launcher(), s.rt.Poller(), cfg.LaunchLag())
	status := http.StatusOK
	if !res.OK {
		// The trigger should retry; the document was not advanced.
		status = http.StatusConflict
	}
	writeJSON(w, status, res)
}

// handleSnapshot returns the queue document. GET /v1/queues?queue=<queue>
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	doc, err := s.rt.Engine().Snapshot(r.Context(), s.queueParam(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type enqueueReq struct {
	Queue  string          `json:"queue"`
	Params json.RawMessage `json:"params"`
}

// handleEnqueue appends a PENDING entry. POST /v1/queues/enqueue
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req enqueueReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Queue == "" {
		req.Queue = s.rt.Config().DefaultQueue
	}
	ent, err := s.rt.Engine().Enqueue(r.Context(), req.Queue, req.Params)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, ent)
}

// handleEntries lists entries, optionally filtered by a CEL expression.
// GET /v1/queues/entries?queue=<queue>&filter=<expr>
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries, err := s.rt.Engine().FilterEntries(r.Context(), s.queueParam(r), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type queueReq struct {
	Queue string `json:"queue"`
}

func (s *Server) setRunning(w http.ResponseWriter, r *http.Request, running bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req queueReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Queue == "" {
		req.Queue = s.rt.Config().DefaultQueue
	}
	if err := s.rt.Engine().SetRunning(r.Context(), req.Queue, running); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request)  { s.setRunning(w, r, false) }
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) { s.setRunning(w, r, true) }

type removeReq struct {
	Queue string `json:"queue"`
	ID    int64  `json:"id"`
}

// handleRemove deletes a non-active entry. POST /v1/queues/remove
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req removeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Queue == "" {
		req.Queue = s.rt.Config().DefaultQueue
	}
	if err := s.rt.Engine().Remove(r.Context(), req.Queue, req.ID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHistory returns the archived ledger rows.
// GET /v1/history?queue=<queue>
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	header, rows, err := s.rt.Engine().History(r.Context(), s.queueParam(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]string, len(row.Values)+1)
		for k, v := range row.Values {
			m[k] = v
		}
		m["job_id"] = strconv.FormatInt(row.JobID, 10)
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": header, "rows": out})
}
