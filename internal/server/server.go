package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/match"
	"github.com/pfrederiksen/cricpulse/internal/router"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "127.0.0.1:7420"

const shutdownTimeout = 5 * time.Second

// Server exposes the router and the state store over HTTP.
type Server struct {
	router   *router.Router
	store    *store.Store
	log      *logger.Logger
	metrics  *logger.Metrics
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	clients  atomic.Int64

	checkOrigin func(*http.Request) bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics sets the metrics served on /metrics.
func WithMetrics(m *logger.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithCheckOrigin sets the origin check used for websocket upgrades and
// state-changing requests. The default is LocalOrigin.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) { s.checkOrigin = fn }
}

// New creates a Server.
func New(r *router.Router, st *store.Store, opts ...Option) *Server {
	s := &Server{
		router:  r,
		store:   st,
		log:     logger.Default(),
		metrics: logger.DefaultMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		checkOrigin: LocalOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.checkOrigin == nil {
		s.checkOrigin = LocalOrigin
	}
	s.upgrader.CheckOrigin = s.checkOrigin
	s.log = s.log.With(logger.Fields{"component": "server"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /matches", s.handleMatches)
	mux.HandleFunc("POST /sync", s.requireOrigin(s.handleSync))
	mux.HandleFunc("POST /test-alert", s.requireOrigin(s.handleTestAlert))
	mux.HandleFunc("POST /command", s.requireOrigin(s.handleCommand))
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /selection", s.handleGetSelection)
	mux.HandleFunc("PUT /selection", s.requireOrigin(s.handlePutSelection))
	mux.HandleFunc("DELETE /selection", s.requireOrigin(s.handleDeleteSelection))
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux = mux
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logger.Fields{"addr": ln.Addr().String()})
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.log.Info("http server stopped", nil)
	return nil
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	resp, err := router.Await(r.Context(), s.router.ListLiveMatches(r.Context()))
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.writeAck(w, r, s.router.ForceSync(r.Context()))
}

func (s *Server) handleTestAlert(w http.ResponseWriter, r *http.Request) {
	s.writeAck(w, r, s.router.SendTestAlert(r.Context()))
}

func (s *Server) writeAck(w http.ResponseWriter, r *http.Request, ch <-chan router.Ack) {
	ack, err := router.Await(r.Context(), ch)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	status := http.StatusOK
	if !ack.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, ack)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	resp, err := router.Await(r.Context(), s.router.Handle(r.Context(), req))
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.store.Current(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("no match state published"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// selectionBody is the /selection payload. The id may be a string or a
// number.
type selectionBody struct {
	SelectedMatchID json.RawMessage `json:"selectedMatchId"`
}

type selectionResponse struct {
	SelectedMatchID *match.ID `json:"selectedMatchId"`
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	id, ok, err := s.store.Selection(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	var resp selectionResponse
	if ok {
		resp.SelectedMatchID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	var body selectionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding selection: %w", err))
		return
	}
	id := match.ParseID(body.SelectedMatchID)
	if id.IsZero() {
		s.writeError(w, http.StatusBadRequest, errors.New("selectedMatchId is required"))
		return
	}
	if err := s.store.Select(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("match selected", logger.Fields{"match_id": id.String()})
	writeJSON(w, http.StatusOK, selectionResponse{SelectedMatchID: &id})
}

func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearSelection(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("match selection cleared", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", logger.Fields{"status": status}, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
