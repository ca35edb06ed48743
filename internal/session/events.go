package session

import (
	"log/slog"
	"time"
)

// EventKind identifies a session lifecycle transition.
type EventKind int

const (
	// EventAuthenticated fires when a token from login is stored.
	EventAuthenticated EventKind = iota + 1
	// EventRefreshed fires when a refresh stored a new access token.
	EventRefreshed
	// EventSessionExpired fires when the session became unrecoverable.
	EventSessionExpired
	// EventLoggedOut fires when the user ended the session.
	EventLoggedOut
)

func (k EventKind) String() string {
	switch k {
	case EventAuthenticated:
		return "authenticated"
	case EventRefreshed:
		return "refreshed"
	case EventSessionExpired:
		return "session_expired"
	case EventLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Event is published to subscribers on every session transition.
type Event struct {
	Kind   EventKind
	Reason string
	At     time.Time
}

// Subscribe returns a channel receiving future events and a function that
// unsubscribes and closes it. Delivery never blocks the publisher: events
// that do not fit into the buffer are dropped.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (m *Manager) publish(kind EventKind, reason string) {
	ev := Event{Kind: kind, Reason: reason, At: m.now()}

	m.subMu.Lock()
	defer m.subMu.Unlock()

	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping session event for slow subscriber", "event", kind.String(), "subscriber", id)
		}
	}
}
