// Package account tracks who is logged in and decides which screens a
// visitor may reach.
package account

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/florianilch/shelf/internal/session"
	"github.com/florianilch/shelf/internal/shelfapi"
)

// API is the subset of shelfapi.API used for authentication.
type API interface {
	Login(ctx context.Context, req shelfapi.LoginRequest) (*shelfapi.TokenInfo, error)
	Register(ctx context.Context, req shelfapi.RegisterRequest) (*shelfapi.User, error)
	Me(ctx context.Context) (*shelfapi.User, error)
	Logout(ctx context.Context) error
}

// CookieClearer drops the persisted refresh cookie.
type CookieClearer interface {
	Clear(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithCookies clears jar on logout.
func WithCookies(jar CookieClearer) Option {
	return func(s *Store) {
		s.cookies = jar
	}
}

// Store holds the current user next to the session's access token.
type Store struct {
	api     API
	session *session.Manager
	cookies CookieClearer

	mu   sync.RWMutex
	user *shelfapi.User

	unsubscribe func()
	done        chan struct{}
}

// New creates a Store and starts following session events. Call Close to stop.
func New(api API, sess *session.Manager, opts ...Option) *Store {
	s := &Store{
		api:     api,
		session: sess,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	events, unsubscribe := sess.Subscribe(8)
	s.unsubscribe = unsubscribe
	go s.follow(events)
	return s
}

// Close stops following session events.
func (s *Store) Close() {
	s.unsubscribe()
	<-s.done
}

func (s *Store) follow(events <-chan session.Event) {
	defer close(s.done)
	for ev := range events {
		switch ev.Kind {
		case session.EventSessionExpired, session.EventLoggedOut:
			slog.Debug("session ended, clearing user", "event", ev.Kind.String(), "reason", ev.Reason)
			s.setUser(nil)
		}
	}
}

// User returns the current user, nil when nobody is loaded.
func (s *Store) User() *shelfapi.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) setUser(u *shelfapi.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// HasToken reports whether an access token is persisted.
func (s *Store) HasToken(ctx context.Context) bool {
	tok, err := s.session.Token(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read access token", "error", err)
		return false
	}
	return tok != nil
}

// IsAuthenticated requires both a token and a loaded user.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.HasToken(ctx) && s.User() != nil
}

// Login authenticates, persists the token and loads the profile.
func (s *Store) Login(ctx context.Context, username, password string) (*shelfapi.User, error) {
	tok, err := s.api.Login(ctx, shelfapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if err := s.session.SetToken(ctx, *tok); err != nil {
		return nil, err
	}
	if err := s.FetchCurrentUser(ctx); err != nil {
		return nil, err
	}
	return s.User(), nil
}

// Register creates an account without logging in.
func (s *Store) Register(ctx context.Context, req shelfapi.RegisterRequest) (*shelfapi.User, error) {
	return s.api.Register(ctx, req)
}

// FetchCurrentUser loads the profile for the persisted token. A failure ends
// the local session. Without a token it does nothing.
func (s *Store) FetchCurrentUser(ctx context.Context) error {
	if !s.HasToken(ctx) {
		return nil
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		s.setUser(nil)
		if !errors.Is(err, session.ErrSessionExpired) {
			if expErr := s.session.Expire(ctx, "profile could not be loaded"); expErr != nil {
				slog.ErrorContext(ctx, "failed to clear access token", "error", expErr)
			}
		}
		return err
	}
	s.setUser(user)
	return nil
}

// Logout ends the server session on a best-effort basis and always clears
// local state.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		slog.DebugContext(ctx, "server logout failed", "error", err)
	}

	var errs []error
	if err := s.session.Logout(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.cookies != nil {
		if err := s.cookies.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.setUser(nil)
	return errors.Join(errs...)
}

// InitAuth restores the user when a token survived from a previous run.
func (s *Store) InitAuth(ctx context.Context) error {
	return s.FetchCurrentUser(ctx)
}
