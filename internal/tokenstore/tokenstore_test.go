package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestWritableStores(t *testing.T) {
	keyring.MockInit()

	tests := []struct {
		name  string
		store func(t *testing.T) Store
	}{
		{
			name: "file",
			store: func(t *testing.T) Store {
				s, err := NewFileStore(filepath.Join(t.TempDir(), "creds"))
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "keyring",
			store: func(t *testing.T) Store {
				s, err := NewKeyringStore("shelf-test", t.Name())
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "memory",
			store: func(t *testing.T) Store {
				return NewMemoryStore()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := tt.store(t)

			_, err := s.Read(ctx, KeyAccessToken)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Write(ctx, KeyAccessToken, "tok-1"))
			got, err := s.Read(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "tok-1", got)

			require.NoError(t, s.Write(ctx, KeyAccessToken, "tok-2"))
			got, err = s.Read(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "tok-2", got)

			// keys are independent
			_, err = s.Read(ctx, KeyCookies)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Delete(ctx, KeyAccessToken))
			_, err = s.Read(ctx, KeyAccessToken)
			assert.ErrorIs(t, err, ErrNotFound)

			// idempotent
			require.NoError(t, s.Delete(ctx, KeyAccessToken))
		})
	}
}

func TestFileStoreRejectsInsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyAccessToken), []byte("tok"), 0644))

	_, err = s.Read(context.Background(), KeyAccessToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure permissions")
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = s.Write(context.Background(), "../escape", "x")
	assert.Error(t, err)
}

func TestEnvStore(t *testing.T) {
	t.Setenv("SHELF_TEST_TOKEN", "env-tok")

	s, err := NewEnvStore("SHELF_TEST_TOKEN")
	require.NoError(t, err)

	ctx := context.Background()
	got, err := s.Read(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "env-tok", got)

	_, err = s.Read(ctx, KeyCookies)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Write(ctx, KeyAccessToken, "other"))
	assert.Error(t, s.Delete(ctx, KeyAccessToken))

	_, err = NewEnvStore("SHELF_TEST_TOKEN_UNSET")
	assert.Error(t, err)
}

func TestStoresHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	_, err := s.Read(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Write(ctx, KeyAccessToken, "x"), context.Canceled)
}
