package apify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Cache remembers, per token, the account behind it and its actor list so
// that page loads and API calls do not reach the platform every time.
// Tokens themselves are never kept: entries are keyed by a digest.
type Cache struct {
	mu     sync.Mutex
	ttl    time.Duration
	users  map[string]cacheEntry[*User]
	actors map[string]cacheEntry[[]Actor]
	logger *slog.Logger
	now    func() time.Time
}

type cacheEntry[T any] struct {
	value   T
	fetched time.Time
}

// NewCache creates a cache whose entries expire after ttl. A zero ttl
// disables caching.
func NewCache(ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		ttl:    ttl,
		users:  make(map[string]cacheEntry[*User]),
		actors: make(map[string]cacheEntry[[]Actor]),
		logger: logger.With("component", "apify-cache"),
		now:    time.Now,
	}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// User returns the account owning token, verifying it with p when the
// cached answer is missing or expired. Rejected tokens are not cached.
func (c *Cache) User(ctx context.Context, token string, p Platform) (*User, error) {
	key := tokenKey(token)
	c.mu.Lock()
	e, ok := c.users[key]
	c.mu.Unlock()
	if ok && c.fresh(e.fetched) {
		return e.value, nil
	}

	u, err := p.VerifyToken(ctx)
	if err != nil {
		c.Forget(token)
		return nil, err
	}
	c.mu.Lock()
	c.users[key] = cacheEntry[*User]{value: u, fetched: c.now()}
	c.mu.Unlock()
	return u, nil
}

// Actors returns the actor list of token. When a refresh fails for a reason
// other than authentication, the previous list is served.
func (c *Cache) Actors(ctx context.Context, token string, p Platform) ([]Actor, error) {
	key := tokenKey(token)
	c.mu.Lock()
	e, ok := c.actors[key]
	c.mu.Unlock()
	if ok && c.fresh(e.fetched) {
		return e.value, nil
	}

	actors, err := p.ListActors(ctx)
	if err != nil {
		if IsAuthError(err) {
			c.Forget(token)
			return nil, err
		}
		if ok {
			c.logger.Warn("list actors failed, using cache", "error", err)
			return e.value, nil
		}
		return nil, err
	}
	c.mu.Lock()
	c.actors[key] = cacheEntry[[]Actor]{value: actors, fetched: c.now()}
	c.mu.Unlock()
	return actors, nil
}

// Forget drops everything cached for token.
func (c *Cache) Forget(token string) {
	key := tokenKey(token)
	c.mu.Lock()
	delete(c.users, key)
	delete(c.actors, key)
	c.mu.Unlock()
}

// Prune removes expired entries and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.users {
		if !c.fresh(e.fetched) {
			delete(c.users, k)
			n++
		}
	}
	for k, e := range c.actors {
		if !c.fresh(e.fetched) {
			delete(c.actors, k)
			n++
		}
	}
	return n
}

func (c *Cache) fresh(fetched time.Time) bool {
	return c.ttl > 0 && c.now().Sub(fetched) < c.ttl
}
