package tokenstore

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyAccessToken = "access_token"
	KeyCookies     = "cookies"
)

// ErrNotFound is returned by Read when no value is stored under the key.
var ErrNotFound = errors.New("tokenstore: not found")

// Store reads and writes credential values to persistent storage.
type Store interface {
	// Read returns the stored value. Returns ErrNotFound if the key is missing or empty.
	Read(ctx context.Context, key string) (string, error)

	// Write persists the value under key. Returns error if the storage backend
	// is read-only (e.g., environment variables) or if the write operation fails.
	Write(ctx context.Context, key, value string) error

	// Delete removes the value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
