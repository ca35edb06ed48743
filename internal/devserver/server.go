// Package devserver runs an in-memory stand-in for the shelf backend.
//
// It implements the subset of the API the client uses, with the same auth
// model: short-lived bearer JWTs plus a rotating refresh token in an HttpOnly
// cookie scoped to the auth endpoints.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/shelf/internal/observability/middleware"
	"github.com/florianilch/shelf/internal/shelfapi"
)

const (
	DefaultBasePath   = "/api/v1"
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	// RefreshCookieName is the cookie carrying the refresh token.
	RefreshCookieName = "refresh_token"

	maxBodyBytes = 10 << 20
)

// Option configures a Server.
type Option func(*Server)

// WithBasePath mounts the API under path instead of DefaultBasePath.
func WithBasePath(path string) Option {
	return func(s *Server) {
		s.basePath = path
	}
}

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.tokens.accessTTL = d
		}
	}
}

// WithRefreshTTL sets the refresh token lifetime.
func WithRefreshTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.tokens.refreshTTL = d
		}
	}
}

// WithSessions replaces the in-memory refresh session store.
func WithSessions(store SessionStore) Option {
	return func(s *Server) {
		s.sessions = store
	}
}

// WithClock replaces time.Now for token issuing and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.tokens.now = now
		s.db.now = now
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server is the mock backend.
type Server struct {
	basePath string
	tokens   *issuer
	sessions SessionStore
	db       *db
	validate *validator.Validate
	logger   *slog.Logger

	handler http.Handler
	server  *http.Server
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// New creates a Server signing tokens with secret.
func New(secret []byte, opts ...Option) (*Server, error) {
	if len(secret) == 0 {
		return nil, errors.New("missing signing secret")
	}

	s := &Server{
		basePath: DefaultBasePath,
		tokens: &issuer{
			secret:     secret,
			accessTTL:  DefaultAccessTTL,
			refreshTTL: DefaultRefreshTTL,
			now:        time.Now,
		},
		sessions: NewMemorySessions(),
		db:       newDB(time.Now),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = middleware.Chain(s.routes(), middleware.Logging(s.logger), middleware.Recovery)
	return s, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// SeedUser registers a user directly, bypassing the password policy.
func (s *Server) SeedUser(login, email, password string) (shelfapi.User, error) {
	return s.db.createUser(shelfapi.RegisterRequest{Login: login, Email: email, Password: password})
}

// Follow makes follower receive notifications about following's new titles.
func (s *Server) Follow(follower, following int64) {
	s.db.follow(follower, following)
}

// Start starts the HTTP server in the background and returns immediately.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors are sent to the returned channel, which is closed when the
// server stops.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.InfoContext(ctx, "dev server listening", "address", listener.Addr().String(), "base_path", s.basePath)
	return errCh, nil
}

// Shutdown gracefully stops the server, forcing it closed if ctx ends first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
