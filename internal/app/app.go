package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/florianilch/shelf/internal/account"
	"github.com/florianilch/shelf/internal/apiclient"
	"github.com/florianilch/shelf/internal/cookiestore"
	"github.com/florianilch/shelf/internal/library"
	"github.com/florianilch/shelf/internal/notifications"
	"github.com/florianilch/shelf/internal/session"
	"github.com/florianilch/shelf/internal/shelfapi"
	"github.com/florianilch/shelf/internal/theme"
)

// App owns the client-side services of one shelf session.
type App struct {
	cfg *Config

	Cookies       *cookiestore.Jar
	Session       *session.Manager
	API           *shelfapi.API
	Account       *account.Store
	Guard         *account.Guard
	Library       *library.Store
	Notifications *notifications.Store
	Theme         *theme.Manager
}

// New creates a new App instance. Persisted state is not read until Init.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	jar, err := cookiestore.New(store)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	// Refresh and API calls must share the jar, the refresh cookie lives there.
	httpClient := &http.Client{Jar: jar, Timeout: cfg.API.Timeout}

	baseURL := strings.TrimRight(cfg.API.BaseURL, "/")
	sess, err := session.New(store, baseURL+"/auth/refresh",
		session.WithHTTPClient(httpClient),
		session.WithRefreshTimeout(cfg.API.RefreshTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	client, err := apiclient.New(baseURL, sess, apiclient.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	api := shelfapi.New(client)

	accounts := account.New(api, sess, account.WithCookies(jar))

	feed := notifications.New(api, notifications.WithUnreadHook(func(count int) {
		slog.Debug("unread notifications", "count", count)
	}))

	return &App{
		cfg:           cfg,
		Cookies:       jar,
		Session:       sess,
		API:           api,
		Account:       accounts,
		Guard:         account.NewGuard(accounts),
		Library:       library.New(api),
		Notifications: feed,
		Theme:         theme.NewManager(cfg.Prefs.File, theme.TerminalDetector),
	}, nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *Config {
	return a.cfg
}

// Init loads the persisted cookies so a surviving refresh cookie can be used.
// The user itself is restored lazily by the guard or by RestoreSession.
func (a *App) Init(ctx context.Context) error {
	if err := a.Cookies.Load(ctx); err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}
	return nil
}

// RestoreSession loads the current user for a persisted token. An expired
// session is not an error, the user simply starts logged out.
func (a *App) RestoreSession(ctx context.Context) error {
	if err := a.Account.InitAuth(ctx); err != nil && !errors.Is(err, session.ErrSessionExpired) {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	return nil
}

// Close stops background work.
func (a *App) Close() {
	a.Notifications.StopPolling()
	a.Account.Close()
}
