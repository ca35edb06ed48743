package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/florianilch/shelf/internal/tokenstore"
)

// DefaultRefreshTimeout bounds a single refresh round trip, including all waiters.
const DefaultRefreshTimeout = 30 * time.Second

const refreshKey = "refresh"

// ErrSessionExpired is matched by every error reporting an unrecoverable session.
var ErrSessionExpired = errors.New("session expired")

// RefreshError describes why a refresh failed. It always matches ErrSessionExpired.
type RefreshError struct {
	// Status is the HTTP status returned by the refresh endpoint, 0 if none was received.
	Status int
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("session expired: refresh returned status %d", e.Status)
	}
	if e.Err != nil {
		return "session expired: " + e.Err.Error()
	}
	return ErrSessionExpired.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Is reports ErrSessionExpired as a match.
func (e *RefreshError) Is(target error) bool { return target == ErrSessionExpired }

// TokenInfo is the token payload returned by login and refresh.
type TokenInfo struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for refresh calls. It must share the cookie
// jar of the API client, otherwise the refresh credential is never sent.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// WithRefreshTimeout bounds each refresh. Non-positive values keep the default.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// Manager owns the persisted access token and serializes refreshes.
type Manager struct {
	store      tokenstore.Store
	refreshURL string
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time

	// mu makes "is my token stale" and "join the in-flight refresh" one step.
	mu    sync.Mutex
	group singleflight.Group

	subMu     sync.Mutex
	subs      map[int]chan Event
	nextSubID int
}

// New creates a Manager persisting tokens in store and refreshing them with a
// cookie-authenticated POST to refreshURL.
func New(store tokenstore.Store, refreshURL string, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if refreshURL == "" {
		return nil, fmt.Errorf("missing refresh URL")
	}

	m := &Manager{
		store:      store,
		refreshURL: refreshURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultRefreshTimeout,
		now:        time.Now,
		subs:       make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Token returns the persisted access token, or nil if there is none.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	raw, err := m.store.Read(ctx, tokenstore.KeyAccessToken)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading access token: %w", err)
	}
	return bearer(raw), nil
}

// SetToken persists a token obtained from login.
func (m *Manager) SetToken(ctx context.Context, info TokenInfo) error {
	if info.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	if err := m.store.Write(ctx, tokenstore.KeyAccessToken, info.AccessToken); err != nil {
		return fmt.Errorf("persisting access token: %w", err)
	}
	m.publish(EventAuthenticated, "")
	return nil
}

// Logout removes the persisted token after the user ended the session.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Delete(ctx, tokenstore.KeyAccessToken); err != nil {
		return fmt.Errorf("deleting access token: %w", err)
	}
	m.publish(EventLoggedOut, "")
	return nil
}

// Expire removes the persisted token and announces that the session is gone.
func (m *Manager) Expire(ctx context.Context, reason string) error {
	err := m.store.Delete(ctx, tokenstore.KeyAccessToken)
	m.publish(EventSessionExpired, reason)
	if err != nil {
		return fmt.Errorf("deleting access token: %w", err)
	}
	return nil
}

// Refresh obtains a new access token after stale was rejected by the server.
// Pass the token the failed request carried, or "" when it carried none.
//
// Concurrent callers share one refresh. A caller whose stale token was already
// replaced gets the current token without a network call, or ErrSessionExpired
// if the replacement attempt failed in the meantime.
func (m *Manager) Refresh(ctx context.Context, stale string) (*oauth2.Token, error) {
	m.mu.Lock()
	current, err := m.store.Read(ctx, tokenstore.KeyAccessToken)
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		m.mu.Unlock()
		return nil, fmt.Errorf("reading access token: %w", err)
	}
	if stale != "" && current != stale {
		m.mu.Unlock()
		if current == "" {
			return nil, &RefreshError{}
		}
		return bearer(current), nil
	}
	// The flight runs detached from the first caller's cancellation. It keeps
	// that caller's values, so the refresh is traced and logged under it.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return m.refresh(flightCtx)
	})
	m.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh performs the network call and settles the persisted token.
// Runs at most once at a time under the singleflight group.
func (m *Manager) refresh(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	slog.DebugContext(ctx, "refreshing access token")

	// Settling must happen even when the round trip ran out of time.
	settleCtx := context.WithoutCancel(ctx)

	info, err := m.fetch(ctx)

	// Settled under mu, so a caller that saw the stale token is still able to
	// join this flight before it leaves the group.
	m.mu.Lock()
	if err == nil {
		err = m.store.Write(settleCtx, tokenstore.KeyAccessToken, info.AccessToken)
		if err != nil {
			err = &RefreshError{Err: fmt.Errorf("persisting access token: %w", err)}
		}
	}
	if err != nil {
		if delErr := m.store.Delete(settleCtx, tokenstore.KeyAccessToken); delErr != nil {
			slog.ErrorContext(settleCtx, "failed to delete access token after refresh failure", "error", delErr)
		}
	}
	m.mu.Unlock()

	if err != nil {
		slog.InfoContext(settleCtx, "session expired", "error", err)
		m.publish(EventSessionExpired, err.Error())
		return nil, err
	}

	slog.DebugContext(ctx, "access token refreshed")
	m.publish(EventRefreshed, "")
	return &oauth2.Token{AccessToken: info.AccessToken, TokenType: info.TokenType}, nil
}

func (m *Manager) fetch(ctx context.Context) (TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, http.NoBody)
	if err != nil {
		return TokenInfo{}, &RefreshError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return TokenInfo{}, &RefreshError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return TokenInfo{}, &RefreshError{Status: resp.StatusCode}
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return TokenInfo{}, &RefreshError{Err: fmt.Errorf("decoding refresh response: %w", err)}
	}
	if info.AccessToken == "" {
		return TokenInfo{}, &RefreshError{Err: errors.New("refresh response without access_token")}
	}
	return info, nil
}

func bearer(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
}
