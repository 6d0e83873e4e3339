package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/applepay-relay/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions.
var ginModeOnce sync.Once

// Server timeouts not exposed through configuration.
const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// Config holds configuration for the HTTP server.
type Config struct {
	Address     string
	Port        int
	ReadTimeout time.Duration
	// WriteTimeout is zero by default. A non-zero value also caps how
	// long a handler may wait on the validation service.
	WriteTimeout time.Duration
}

// Server is the inbound HTTP server.
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	logger     observability.Logger
	running    atomic.Bool
	mu         sync.Mutex
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server with an empty gin engine.
func New(cfg Config, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		config: cfg,
		engine: gin.New(),
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Use adds middleware to the engine. It must be called before routes
// are registered.
func (s *Server) Use(middleware ...gin.HandlerFunc) {
	s.engine.Use(middleware...)
}

// Engine returns the underlying gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// isRunning reports whether the server is accepting connections.
func (s *Server) isRunning() bool {
	return s.running.Load()
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if s.isRunning() {
		return errors.New("server already running")
	}

	addr := s.Address()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = httpServer
	s.mu.Unlock()
	s.running.Store(true)

	port := 0
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}
	s.logger.Info("relay listening",
		observability.String("address", ln.Addr().String()),
		observability.Int("port", port),
	)
	for _, route := range s.engine.Routes() {
		s.logger.Info("endpoint available",
			observability.String("method", route.Method),
			observability.String("path", route.Path),
		)
	}

	go s.serve(httpServer, ln)

	return nil
}

func (s *Server) serve(httpServer *http.Server, ln net.Listener) {
	err := httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("server error", observability.Error(err))
	}
	s.running.Store(false)
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil || !s.isRunning() {
		return nil
	}

	s.logger.Info("stopping HTTP server")

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.running.Store(false)

	s.logger.Info("HTTP server stopped")
	return nil
}
