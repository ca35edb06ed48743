package devserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a user has no live refresh session.
var ErrNoSession = errors.New("no refresh session")

// SessionStore keeps the single valid refresh token per user. Saving a new
// token revokes the previous one.
type SessionStore interface {
	Save(ctx context.Context, userID int64, token string, ttl time.Duration) error
	Load(ctx context.Context, userID int64) (string, error)
	Revoke(ctx context.Context, userID int64) error
}

func sessionKey(userID int64) string {
	return "refresh_token:" + strconv.FormatInt(userID, 10)
}

// MemorySessions is a process-local SessionStore.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[int64]memorySession
	now      func() time.Time
}

type memorySession struct {
	token   string
	expires time.Time
}

// NewMemorySessions creates an empty MemorySessions.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[int64]memorySession), now: time.Now}
}

func (m *MemorySessions) Save(_ context.Context, userID int64, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = memorySession{token: token, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemorySessions) Load(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return "", ErrNoSession
	}
	if !m.now().Before(s.expires) {
		delete(m.sessions, userID)
		return "", ErrNoSession
	}
	return s.token, nil
}

func (m *MemorySessions) Revoke(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// RedisSessions stores refresh sessions under refresh_token:<user id> with
// the token's lifetime as TTL.
type RedisSessions struct {
	rdb redis.UniversalClient
}

// NewRedisSessions wraps an existing client.
func NewRedisSessions(rdb redis.UniversalClient) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

// DialRedisSessions connects to url (redis://...) and checks the connection.
func DialRedisSessions(ctx context.Context, url string) (*RedisSessions, func() error, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisSessions(rdb), rdb.Close, nil
}

func (r *RedisSessions) Save(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, sessionKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("saving refresh session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Load(ctx context.Context, userID int64) (string, error) {
	token, err := r.rdb.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("loading refresh session: %w", err)
	}
	return token, nil
}

func (r *RedisSessions) Revoke(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("revoking refresh session: %w", err)
	}
	return nil
}
