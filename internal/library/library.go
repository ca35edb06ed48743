// Package library keeps an in-memory snapshot of the user's titles.
package library

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/florianilch/shelf/internal/apiclient"
	"github.com/florianilch/shelf/internal/shelfapi"
)

const fetchFailedMessage = "Failed to fetch titles"

// AllStatuses selects every status in ByStatus and CountByStatus.
const AllStatuses shelfapi.UserTitleStatus = "all"

// Source loads the authenticated user's titles.
type Source interface {
	MyTitles(ctx context.Context) ([]shelfapi.UserTitle, error)
}

// Store is safe for concurrent use.
type Store struct {
	source Source

	mu      sync.RWMutex
	titles  []shelfapi.UserTitle
	loading bool
	lastErr string
}

// New creates an empty Store.
func New(source Source) *Store {
	return &Store{source: source}
}

// Fetch replaces the snapshot. On failure the previous snapshot is kept and
// the error message is recorded.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	titles, err := s.source.MyTitles(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = errorMessage(err)
		slog.DebugContext(ctx, "fetching titles failed", "error", err)
		return err
	}
	s.titles = titles
	return nil
}

// Loading reports whether a Fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the message of the last failed Fetch, empty after a success.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Titles returns a copy of the snapshot.
func (s *Store) Titles() []shelfapi.UserTitle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.titles)
}

// ByCategory returns the titles stored under c.
func (s *Store) ByCategory(c shelfapi.TitleCategory) []shelfapi.UserTitle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter(s.titles, func(t shelfapi.UserTitle) bool { return t.Title.Category == c })
}

// ByStatus filters by status, or returns everything for AllStatuses. An empty
// category matches all categories. Outside games, playing and watching are
// the same shelf.
func (s *Store) ByStatus(status shelfapi.UserTitleStatus, category shelfapi.TitleCategory) []shelfapi.UserTitle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := s.titles
	if category != "" {
		titles = filter(titles, func(t shelfapi.UserTitle) bool { return t.Title.Category == category })
	}
	if status == AllStatuses {
		return slices.Clone(titles)
	}
	if category != "" && category != shelfapi.CategoryGame && inProgress(status) {
		return filter(titles, func(t shelfapi.UserTitle) bool { return inProgress(t.Status) })
	}
	return filter(titles, func(t shelfapi.UserTitle) bool { return t.Status == status })
}

// CountByStatus is len(ByStatus(status, category)).
func (s *Store) CountByStatus(status shelfapi.UserTitleStatus, category shelfapi.TitleCategory) int {
	return len(s.ByStatus(status, category))
}

func inProgress(s shelfapi.UserTitleStatus) bool {
	return s == shelfapi.StatusPlaying || s == shelfapi.StatusWatching
}

func filter(titles []shelfapi.UserTitle, keep func(shelfapi.UserTitle) bool) []shelfapi.UserTitle {
	var out []shelfapi.UserTitle
	for _, t := range titles {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func errorMessage(err error) string {
	if apiErr, ok := apiclient.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fetchFailedMessage
}
