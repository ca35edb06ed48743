package notifications

import (
	"context"
	"log/slog"
	"time"
)

// StartPolling fetches the unread count now and then every interval until
// ctx ends or StopPolling is called. A running poller is replaced.
func (s *Store) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopPoller = func() {
		cancel()
		<-done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := s.FetchUnreadCount(ctx); err != nil && ctx.Err() == nil {
				slog.DebugContext(ctx, "unread count poll failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// StopPolling stops the poller and waits for it to exit. It is a no-op when
// nothing is polling.
func (s *Store) StopPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	s.stopLocked()
}

func (s *Store) stopLocked() {
	if s.stopPoller != nil {
		s.stopPoller()
		s.stopPoller = nil
	}
}
