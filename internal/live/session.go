// Package live serves interactive simulation sessions over WebSocket.
//
// A client sends {"kind": ..., "params": {...}} messages. Each message
// cancels the run in flight and starts a new one; the session pushes
// {"kind", "run_id", "result"} or {"kind", "error"} frames. Results of
// superseded runs are dropped.
package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/observability"
)

// Config configures session behavior.
type Config struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long the session waits for a message or pong.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing frames.
	WriteTimeout time.Duration
	// MaxMessageBytes limits incoming message size.
	MaxMessageBytes int64
}

// DefaultConfig returns default session configuration.
func DefaultConfig() Config {
	return Config{
		PingInterval:    30 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageBytes: 64 << 10,
	}
}

// withDefaults replaces zero or negative fields with DefaultConfig values.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = def.MaxMessageBytes
	}
	return c
}

// Dispatcher runs one operation. simulation.Runner implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind domain.RunKind, params json.RawMessage) (string, any, error)
}

// Request is a client message.
type Request struct {
	Kind   domain.RunKind  `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is a server frame.
type Response struct {
	Kind   domain.RunKind `json:"kind,omitempty"`
	RunID  string         `json:"run_id,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Handler upgrades HTTP requests to live sessions.
type Handler struct {
	dispatcher Dispatcher
	metrics    *observability.Metrics
	logger     *log.Logger
	config     Config
	upgrader   websocket.Upgrader
}

// Options for creating Handler.
type Options struct {
	Metrics *observability.Metrics
	Logger  *log.Logger
	Config  *Config
	// CheckOrigin overrides the upgrader's same-origin check.
	CheckOrigin func(r *http.Request) bool
}

// NewHandler creates a live session handler.
func NewHandler(d Dispatcher, opts Options) *Handler {
	h := &Handler{
		dispatcher: d,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		config:     DefaultConfig(),
		upgrader:   websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
	}
	if opts.Config != nil {
		h.config = opts.Config.withDefaults()
	}
	if h.metrics == nil {
		h.metrics = observability.DefaultMetrics
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h
}

// ServeHTTP runs one session until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.logger.Printf("[live] upgrade: %v", err)
		return
	}

	h.metrics.LiveSessions.Inc()
	defer h.metrics.LiveSessions.Dec()

	s := newSession(h, conn)
	s.run(r.Context())
}

type session struct {
	h    *Handler
	conn *websocket.Conn

	writeMu sync.Mutex

	// mu guards generation and cancel
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc

	wg sync.WaitGroup
}

func newSession(h *Handler, conn *websocket.Conn) *session {
	return &session{h: h, conn: conn}
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	defer func() {
		close(done)
		cancel()
		s.wg.Wait()
		s.conn.Close()
	}()

	cfg := s.h.config
	s.conn.SetReadLimit(cfg.MaxMessageBytes)
	s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	s.wg.Add(1)
	go s.pingLoop(done)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.h.logger.Printf("[live] read: %v", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		s.h.metrics.LiveMessagesRecv.Inc()

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			s.write(Response{Error: "invalid message: " + err.Error()})
			continue
		}
		s.start(ctx, req)
	}
}

// start cancels the run in flight and launches req.
func (s *session) start(ctx context.Context, req Request) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		runID, result, err := s.h.dispatcher.Dispatch(runCtx, req.Kind, req.Params)

		s.mu.Lock()
		current := gen == s.generation
		s.mu.Unlock()
		if !current {
			s.h.metrics.SupersededRuns.Inc()
			return
		}

		if err != nil {
			s.write(Response{Kind: req.Kind, Error: err.Error()})
			return
		}
		s.write(Response{Kind: req.Kind, RunID: runID, Result: result})
	}()
}

func (s *session) write(resp Response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.h.config.WriteTimeout))
	if err := s.conn.WriteJSON(resp); err != nil {
		s.h.logger.Printf("[live] write: %v", err)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (s *session) pingLoop(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.h.config.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
