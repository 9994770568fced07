// Package server hosts the authentication service: the /auth WebSocket
// endpoint running the SRP exchange, the /session endpoint for bearer
// token introspection and logout, and /healthz.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marspr/srp-web/internal/auth"
	"github.com/marspr/srp-web/internal/config"
	"github.com/marspr/srp-web/internal/logging"
	tlspkg "github.com/marspr/srp-web/internal/tls"
	"github.com/marspr/srp-web/pkg/protocol"
	"github.com/marspr/srp-web/pkg/srp"
)

// Deps are the collaborators the server wires together. All fields are
// required except Limiter, which may be nil when rate limiting is off.
type Deps struct {
	Users     *auth.UserStore
	Sessions  *auth.SessionManager
	Exchanges *auth.ExchangeRegistry
	Limiter   *auth.RateLimiter

	SRPConfig       *srp.Config
	Codec           *protocol.Codec
	ExchangeTimeout time.Duration
}

// Server is the HTTP/WebSocket front of the login service.
type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
	cfg        *config.Config
	deps       Deps
}

// New creates the server and registers its routes.
func New(cfg *config.Config, logger *logging.Logger, deps Deps) (*Server, error) {
	if deps.Users == nil || deps.Sessions == nil || deps.Exchanges == nil {
		return nil, fmt.Errorf("server requires user store, session manager and exchange registry")
	}
	if deps.SRPConfig == nil || deps.Codec == nil {
		return nil, fmt.Errorf("server requires SRP config and codec")
	}

	s := &Server{
		logger: logger,
		cfg:    cfg,
		deps:   deps,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth", s.handleAuth)
	mux.Handle("/session", s.requireSession(http.HandlerFunc(s.handleSession)))
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port),
		Handler:           s.loggingMiddleware(mux),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.TLSEnabled() {
		tlsConfig, err := tlspkg.NewServerConfig(cfg.Listen.TLSCert, cfg.Listen.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("creating TLS config: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	return s, nil
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("server starting", map[string]any{
		"address": s.httpServer.Addr,
		"tls":     s.cfg.TLSEnabled(),
	})

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLSEnabled() {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
