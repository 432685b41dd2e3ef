// Package main provides the lab server:
// - JSON API: one POST endpoint per engine operation, stored run lookup
// - Live sessions: WebSocket clients whose newest request supersedes the previous one
// - Operations: /health, /metrics, /status
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"diffusion-lab/internal/config"
	"diffusion-lab/internal/live"
	"diffusion-lab/internal/observability"
	"diffusion-lab/internal/simulation"
	"diffusion-lab/internal/storage/backend"
)

// Server holds all components of the lab service.
type Server struct {
	// Configuration
	cfg config.Config

	// Components
	stores  *backend.Stores
	runner  *simulation.Runner
	live    *live.Handler
	metrics *observability.Metrics
	logger  *log.Logger

	// State
	mu      sync.Mutex
	started time.Time

	// Stats
	requests map[string]int
	failures int
}

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Parse flags (env as defaults)
	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string")
	sqlitePath := flag.String("sqlite-path", cfg.SQLitePath, "SQLite database file")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage")
	workers := flag.Int("workers", cfg.Workers, "Simulation workers (0 = GOMAXPROCS)")

	flag.Parse()

	cfg.HTTPAddr = *addr
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickHouseDSN = *clickhouseDSN
	cfg.SQLitePath = *sqlitePath
	cfg.UseMemory = *useMemory
	cfg.Workers = *workers

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	stores, cleanup, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := newServer(cfg, stores, observability.ForNamespace(cfg.MetricsNamespace), logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// live sessions are hijacked connections that Shutdown does not wait for
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Channels to signal drained connections and completion
	stopped := make(chan struct{})
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(stopped)
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		go func() {
			// Wait for second signal for immediate shutdown
			select {
			case sig := <-sigCh:
				logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
				os.Exit(1)
			case <-done:
			}
		}()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Graceful shutdown failed: %v", err)
			httpServer.Close()
		}
	}()

	logger.Printf("Starting HTTP server on %s", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	<-stopped
	close(done)

	logger.Println("Shutdown complete")
}

func newServer(cfg config.Config, stores *backend.Stores, metrics *observability.Metrics, logger *log.Logger) *Server {
	runner := simulation.NewRunner(simulation.RunnerOptions{
		RunStore:      stores.Runs,
		BandStore:     stores.Bands,
		FrontierStore: stores.Frontiers,
		Metrics:       metrics,
		Logger:        logger,
		Workers:       cfg.Workers,
		BandStride:    cfg.BandStride,
	})

	return &Server{
		cfg:      cfg,
		stores:   stores,
		runner:   runner,
		live:     live.NewHandler(runner, live.Options{Metrics: metrics, Logger: logger}),
		metrics:  metrics,
		logger:   logger,
		started:  time.Now(),
		requests: make(map[string]int),
	}
}
