// Package httpapi exposes the KV service over a small REST surface. It is a
// convenience layer for curl and dashboards; programs should prefer the gRPC
// clerk, which owns the retry contract.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/linearkv/linearkv/internal/kv"
	"github.com/linearkv/linearkv/internal/service"
)

const (
	contentTypeJSON = "application/json"
	shutdownTimeout = 5 * time.Second
)

// Handler is the subset of *service.KV the HTTP layer needs.
type Handler interface {
	Get(ctx context.Context, key, clientID string, seq int64) (kv.Result, error)
	Put(ctx context.Context, key, value, clientID string, seq int64) error
	Append(ctx context.Context, key, value, clientID string, seq int64) error
	Status() service.Status
}

// Logger is the minimal logging interface used by the HTTP server.
// *slog.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server serves the REST API on its own listener.
type Server struct {
	handler    Handler
	logger     Logger
	httpServer *http.Server
}

// NewServer creates an HTTP API server bound to addr.
func NewServer(addr string, handler Handler, logger Logger) *Server {
	s := &Server{
		handler: handler,
		logger:  logger,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: time.Second,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http api server error", "error", err)
		}
	}()
	s.logger.Info("http api listening", "addr", s.httpServer.Addr)
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http api: shutdown: %w", err)
	}
	return nil
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/kv/{key}", s.handleGet)
	r.Put("/kv/{key}", s.handlePut)
	r.Post("/kv/{key}/append", s.handleAppend)

	return r
}

type writeRequest struct {
	Value    string `json:"value"`
	ClientID string `json:"client_id"`
	Seq      int64  `json:"seq"`
}

type response struct {
	Value string `json:"value,omitempty"`
	Found *bool  `json:"found,omitempty"`
	Error string `json:"error,omitempty"`
}

type statusResponse struct {
	NodeID          string `json:"node_id"`
	Term            int64  `json:"term"`
	IsLeader        bool   `json:"is_leader"`
	LastApplied     int64  `json:"last_applied"`
	PendingRequests int    `json:"pending_requests"`
	Keys            int    `json:"keys"`
	StateBytes      int64  `json:"state_bytes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.handler.Status()
	s.writeJSON(w, http.StatusOK, statusResponse{
		NodeID:          st.NodeID,
		Term:            st.Term,
		IsLeader:        st.IsLeader,
		LastApplied:     st.LastApplied,
		PendingRequests: st.PendingRequests,
		Keys:            st.Keys,
		StateBytes:      st.StateBytes,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	seq, err := strconv.ParseInt(r.URL.Query().Get("seq"), 10, 64)
	if err != nil {
		seq = 0
	}
	clientID, seq, ok := s.identity(w, r.URL.Query().Get("client_id"), seq)
	if !ok {
		return
	}

	res, err := s.handler.Get(r.Context(), key, clientID, seq)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !res.Found {
		found := false
		s.writeJSON(w, http.StatusNotFound, response{Found: &found})
		return
	}
	found := true
	s.writeJSON(w, http.StatusOK, response{Value: res.Value, Found: &found})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	s.handleWrite(w, r, s.handler.Put)
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	s.handleWrite(w, r, s.handler.Append)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string, string, int64) error) {
	key := chi.URLParam(r, "key")

	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, response{Error: "invalid JSON body"})
		return
	}
	clientID, seq, ok := s.identity(w, req.ClientID, req.Seq)
	if !ok {
		return
	}

	if err := op(r.Context(), key, req.Value, clientID, seq); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response{})
}

// identity resolves the client_id/seq pair a request carries. A request
// without a client id gets a fresh one-shot identity with seq 1, which gives
// up retry dedup but keeps plain curl usable. A client id with a bad seq is
// rejected rather than guessed at.
func (s *Server) identity(w http.ResponseWriter, clientID string, seq int64) (string, int64, bool) {
	if clientID == "" {
		return uuid.NewString(), 1, true
	}
	if seq < 1 {
		s.writeJSON(w, http.StatusBadRequest, response{Error: "seq must be a positive integer"})
		return "", 0, false
	}
	return clientID, seq, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotLeader):
		s.writeJSON(w, http.StatusConflict, response{Error: err.Error()})
	case errors.Is(err, service.ErrCommitTimeout):
		s.writeJSON(w, http.StatusServiceUnavailable, response{Error: err.Error()})
	default:
		s.writeJSON(w, http.StatusInternalServerError, response{Error: err.Error()})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}
