// Package session owns the persisted access token and coordinates refreshing it.
//
// A Manager is injected into every API client that shares a login. When a request
// fails with 401 the client asks the Manager for a fresh token:
//
//	tok, err := mgr.Refresh(ctx, staleAccessToken)
//
// At most one refresh call is on the wire at any time. Callers arriving while a
// refresh is in flight wait for its outcome; callers arriving after it settled see
// that the persisted token no longer matches the one they used and return without
// another network round trip.
//
// # Events
//
// Consumers that keep authentication state (the account store, a CLI prompt)
// subscribe to lifecycle events instead of registering global callbacks:
//
//	events, cancel := mgr.Subscribe(8)
//	defer cancel()
//	for ev := range events {
//		if ev.Kind == session.EventSessionExpired { ... }
//	}
package session
