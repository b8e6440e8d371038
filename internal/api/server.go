package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Keekuun/nexus-studio-sub001/internal/metrics"
	"github.com/Keekuun/nexus-studio-sub001/internal/thread"
	"github.com/Keekuun/nexus-studio-sub001/internal/ws"
)

const defaultHeartbeatInterval = 15 * time.Second

// Server handles HTTP requests for the comment API.
type Server struct {
	service           *thread.Service
	hub               *ws.Hub
	metrics           *metrics.Metrics
	logger            *zap.Logger
	corsOrigin        string
	heartbeatInterval time.Duration
	upgrader          websocket.Upgrader
	ready             atomic.Bool

	// streams tracks running /ws handlers
	streams sync.WaitGroup
}

// ServerConfig holds configuration for creating a server.
type ServerConfig struct {
	Service           *thread.Service
	Hub               *ws.Hub
	Metrics           *metrics.Metrics
	Logger            *zap.Logger
	CORSOrigin        string
	HeartbeatInterval time.Duration
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	hub := cfg.Hub
	if hub == nil {
		hub = ws.NewHub()
	}

	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}

	s := &Server{
		service:           cfg.Service,
		hub:               hub,
		metrics:           m,
		logger:            logger,
		corsOrigin:        cfg.CORSOrigin,
		heartbeatInterval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true // the editor UI is served from another origin
			},
		},
	}

	s.ready.Store(true)

	return s
}

// SetReady toggles the /healthz readiness answer.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// CloseStreams disconnects every live-feed client and waits for their
// handlers to return. Call it after http.Server.Shutdown, which does not
// track hijacked connections.
func (s *Server) CloseStreams(ctx context.Context) error {
	s.hub.CloseAll()

	done := make(chan struct{})

	go func() {
		s.streams.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Comment endpoints
	mux.HandleFunc("/comments", s.handleComments)
	mux.HandleFunc("/comments/", s.handleCommentByID)

	// Streaming endpoints
	mux.HandleFunc("/events/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Operational endpoints
	mux.HandleFunc("/livez", s.handleLive)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	return s.requestID(s.accessLog(s.recoverPanics(s.cors(mux))))
}

// handleComments routes GET and POST requests for /comments.
func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListComments(w, r)
	case http.MethodPost:
		s.handleCreateComment(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
