package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/sdbus/internal/logger"
	"github.com/marmos91/sdbus/pkg/busobj"
)

// Config configures the admin debug HTTP surface.
type Config struct {
	Addr          string
	JWTSigningKey string
	TokenTTL      time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8787"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// Server is the admin debug HTTP surface: a read-only view over a running
// dispatch engine's Node Store, gated by a bearer token distinct from the
// bus-level capability access check.
type Server struct {
	server       *http.Server
	tokens       *TokenService
	config       Config
	shutdownOnce sync.Once
}

// NewServer builds a Server reading from store. Returns an error if the
// JWT signing key fails the minimum-length check.
func NewServer(config Config, store *busobj.Store) (*Server, error) {
	config.applyDefaults()

	tokens, err := NewTokenService(config.JWTSigningKey, config.TokenTTL)
	if err != nil {
		return nil, err
	}

	router := NewRouter(store, tokens)

	httpServer := &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: httpServer,
		tokens: tokens,
		config: config,
	}, nil
}

// IssueToken mints a bearer token for operator, for use by sdbusctl login.
func (s *Server) IssueToken(operator string) (string, time.Time, error) {
	return s.tokens.IssueToken(operator)
}

// Start serves the admin HTTP surface until ctx is cancelled, then performs
// a graceful shutdown with its own timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", "addr", s.config.Addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("admin API shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("admin API failed: %w", err)
	}
}

// Stop gracefully shuts down the server. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("admin API shutdown error: %w", err)
			logger.Error("admin API shutdown error", "error", err)
		} else {
			logger.Info("admin API stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.config.Addr
}
