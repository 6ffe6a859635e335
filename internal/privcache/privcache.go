// Package privcache caches user privilege lookups against the platform API.
// Chat messages carry the sender's privileges already; this cache serves the
// paths that only have a username (pubsub, internal API).
package privcache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/pkg/osu"
)

// DefaultTTL is how long one cached privilege entry stays fresh.
const DefaultTTL = 30 * time.Minute

type entry struct {
	privileges osu.Privileges
	expires    time.Time
}

// Cache resolves usernames to privilege masks, keeping entries for TTL.
type Cache struct {
	ripple *api.RippleClient
	ttl    time.Duration
	now    func() time.Time

	mu   sync.Mutex
	data map[string]entry
}

// New creates a cache backed by the ripple API.
func New(ripple *api.RippleClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ripple: ripple,
		ttl:    ttl,
		now:    time.Now,
		data:   make(map[string]entry),
	}
}

// safeUsername normalizes a username the way the chat server does: folded
// case, underscores for spaces.
func safeUsername(username string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(username)), " ", "_")
}

// Get returns the user's privileges, fetching and caching them on a miss or
// after expiry.
func (c *Cache) Get(ctx context.Context, username string) (osu.Privileges, error) {
	key := safeUsername(username)

	c.mu.Lock()
	e, ok := c.data[key]
	c.mu.Unlock()
	if ok && c.now().Before(e.expires) {
		return e.privileges, nil
	}

	user, err := c.ripple.LookupUser(ctx, username)
	if err != nil {
		return osu.PrivilegeNone, err
	}
	priv := osu.Privileges(user.Privileges)

	c.mu.Lock()
	c.data[key] = entry{privileges: priv, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	slog.Debug("cached privileges", "username", username, "privileges", priv)
	return priv, nil
}

// Purge drops every cached entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.data)
	c.data = make(map[string]entry)
	return n
}

// PurgeExpired drops only the entries past their TTL. Called periodically by
// the scheduler.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.data {
		if now.After(e.expires) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
