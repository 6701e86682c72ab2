package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	broadctl "github.com/muurk/broadctl"
	"github.com/muurk/broadctl/internal/logging"
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	LogLevel string

	// DiscoverTimeout bounds the /devices discovery scan.
	DiscoverTimeout time.Duration
}

// Server exposes the Broadlink control surface over a REST API: device
// discovery, IR/RF learning, code sending, plug power, sensor reads, and
// hub sub-device state.
type Server struct {
	config *Config
	router chi.Router
	server *http.Server

	// Handles are cached per host so that one authenticated session (and
	// its packet counter) serves consecutive requests. Each handle
	// serializes its own frames.
	mu      sync.Mutex
	devices map[string]*broadctl.Device
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if config.DiscoverTimeout <= 0 {
		config.DiscoverTimeout = 5 * time.Second
	}

	s := &Server{
		config:  config,
		router:  chi.NewRouter(),
		devices: make(map[string]*broadctl.Device),
	}

	s.router.Use(requestID)
	s.router.Use(requestLogger)
	s.router.Use(recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Route("/api/v1", s.setupRoutes)

	s.server = &http.Server{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port)),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // learning holds the request open
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start runs the server until the context is canceled or a signal
// arrives, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("REST API listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Handler returns the router; tests drive it directly.
func (s *Server) Handler() http.Handler {
	return s.router
}

// deviceFor returns an authenticated handle for host, reusing a cached
// session when one exists.
func (s *Server) deviceFor(host string) (*broadctl.Device, error) {
	s.mu.Lock()
	if d, ok := s.devices[host]; ok {
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	d, err := broadctl.Hello(host, s.config.DiscoverTimeout)
	if err != nil {
		return nil, err
	}
	if err := d.Auth(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have raced the probe; keep the first session.
	if cached, ok := s.devices[host]; ok {
		return cached, nil
	}
	s.devices[host] = d
	return d, nil
}

// dropDevice evicts a cached handle after a hard failure so the next
// request re-probes and re-authenticates.
func (s *Server) dropDevice(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, host)
}
