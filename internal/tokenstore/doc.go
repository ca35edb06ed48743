// Package tokenstore provides persistent key/value storage for client credentials.
//
// The access token and the serialized cookie jar share one backend, so the
// refresh cookie survives across process restarts together with the bearer token.
//
// Supports four storage backends with different security and deployment tradeoffs:
//   - File: one file per key in a private directory with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - Env: Read-only environment variable access (requires external secret management)
//   - Memory: process-local storage for tests and ephemeral sessions
//
// Refreshing sessions requires writable storage (file, keyring or memory). Env storage
// only serves a pre-provisioned access token.
package tokenstore
