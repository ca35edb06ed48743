// Package notifications keeps the user's notification feed and unread badge
// in sync with the backend.
package notifications

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/florianilch/shelf/internal/shelfapi"
)

// DefaultPollInterval is used when StartPolling gets a non-positive interval.
const DefaultPollInterval = 30 * time.Second

// API is the subset of shelfapi.API the store needs.
type API interface {
	Notifications(ctx context.Context, limit, offset int) ([]shelfapi.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) (*shelfapi.Notification, error)
	MarkAllRead(ctx context.Context) error
	ClearRead(ctx context.Context) error
}

// Option configures a Store.
type Option func(*Store)

// WithUnreadHook calls fn after every successful unread count fetch.
func WithUnreadHook(fn func(count int)) Option {
	return func(s *Store) {
		s.onUnread = fn
	}
}

// Store is safe for concurrent use.
type Store struct {
	api      API
	onUnread func(int)

	mu      sync.RWMutex
	items   []shelfapi.Notification
	unread  int
	loading bool

	pollMu     sync.Mutex
	stopPoller func()
}

// New creates an empty Store.
func New(api API, opts ...Option) *Store {
	s := &Store{api: api}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items returns a copy of the loaded notifications.
func (s *Store) Items() []shelfapi.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// UnreadCount returns the last known unread count.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Loading reports whether Fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Fetch loads the first page of notifications.
func (s *Store) Fetch(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	items, err := s.api.Notifications(ctx, shelfapi.DefaultNotificationLimit, 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch notifications", "error", err)
		return err
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// FetchUnreadCount refreshes the unread badge.
func (s *Store) FetchUnreadCount(ctx context.Context) error {
	count, err := s.api.UnreadCount(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.unread = count
	s.mu.Unlock()

	if s.onUnread != nil {
		s.onUnread(count)
	}
	return nil
}

// MarkRead marks one notification read, replacing the local copy and
// decrementing the badge.
func (s *Store) MarkRead(ctx context.Context, id int64) error {
	updated, err := s.api.MarkRead(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark notification as read", "id", id, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.items, func(n shelfapi.Notification) bool { return n.ID == id }); i >= 0 {
		s.items[i] = *updated
	}
	s.unread = max(0, s.unread-1)
	return nil
}

// MarkAllRead marks everything read locally and remotely.
func (s *Store) MarkAllRead(ctx context.Context) error {
	if err := s.api.MarkAllRead(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to mark all notifications as read", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].IsRead = true
	}
	s.unread = 0
	return nil
}

// ClearRead deletes read notifications and drops them locally.
func (s *Store) ClearRead(ctx context.Context) error {
	if err := s.api.ClearRead(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to clear notifications", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(n shelfapi.Notification) bool { return n.IsRead })
	return nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
