package redis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/threadpulse/internal/adapter/metrics"
	"github.com/pscheid92/threadpulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// SessionStore keeps bearer tokens in Redis with a short-lived in-memory
// layer in front, so hot tokens do not cost a round trip per request.
type SessionStore struct {
	rdb     goredis.Cmdable
	mem     *tokenCache
	metrics *metrics.SessionMetrics
}

var _ domain.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates the store. memTTL bounds how long a revoked token
// may still be accepted by another instance. m may be nil.
func NewSessionStore(rdb goredis.Cmdable, clock clockwork.Clock, memTTL time.Duration, m *metrics.SessionMetrics) *SessionStore {
	return &SessionStore{
		rdb:     rdb,
		mem:     newTokenCache(clock, memTTL),
		metrics: m,
	}
}

func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := newToken()
	if err := s.rdb.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	s.mem.set(token, userID)
	if s.metrics != nil {
		s.metrics.Issued.Inc()
	}
	return token, nil
}

// Resolve returns the user id behind token or domain.ErrUnauthenticated.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	if userID, ok := s.mem.get(token); ok {
		s.lookup("hit")
		return userID, nil
	}

	userID, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, goredis.Nil) {
		s.lookup("miss")
		return "", domain.ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}

	s.lookup("hit")
	s.mem.set(token, userID)
	return userID, nil
}

func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	s.mem.invalidate(token)
	if err := s.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if s.metrics != nil {
		s.metrics.Revoked.Inc()
	}
	// Other instances may still cache the token until memTTL passes if this
	// fails, so it is not an error for the caller.
	if err := s.rdb.Publish(ctx, revokeChannel, token).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to broadcast session revocation", "error", err)
	}
	return nil
}

// StartEvictionTimer periodically drops expired in-memory entries. Returns a
// stop function.
func (s *SessionStore) StartEvictionTimer(interval time.Duration) func() {
	ticker := s.mem.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := s.mem.evictExpired(); evicted > 0 {
					slog.Debug("Evicted expired session cache entries", "count", evicted, "remaining", s.mem.size())
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (s *SessionStore) lookup(result string) {
	if s.metrics != nil {
		s.metrics.Lookups.WithLabelValues(result).Inc()
	}
}

// newToken joins two random UUIDs into 64 hex characters.
func newToken() string {
	a, b := uuid.New(), uuid.New()
	return hex.EncodeToString(a[:]) + hex.EncodeToString(b[:])
}

func sessionKey(token string) string {
	return "session:" + token
}

// tokenCache is an in-memory L1 cache with TTL-based expiry.
type tokenCache struct {
	clock   clockwork.Clock
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]tokenEntry
}

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

func newTokenCache(clock clockwork.Clock, ttl time.Duration) *tokenCache {
	return &tokenCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]tokenEntry),
	}
}

func (c *tokenCache) get(token string) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[token]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.userID, true
}

func (c *tokenCache) set(token, userID string) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = tokenEntry{userID: userID, expiresAt: c.clock.Now().Add(c.ttl)}
}

func (c *tokenCache) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

func (c *tokenCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *tokenCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for token, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, token)
			evicted++
		}
	}
	return evicted
}
