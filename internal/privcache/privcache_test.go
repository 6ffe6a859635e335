package privcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/pkg/osu"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"code":200,"users":[{"id":1,"username":"Foka Bot","privileges":3}]}`))
	}))
	t.Cleanup(srv.Close)
	return New(api.NewRipple(srv.URL, "tok", time.Second), ttl), &hits
}

func TestGetCachesWithinTTL(t *testing.T) {
	c, hits := newTestCache(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		priv, err := c.Get(ctx, "Foka Bot")
		if err != nil {
			t.Fatal(err)
		}
		if !priv.Has(osu.PrivilegeUserAllowed) {
			t.Errorf("privileges = %v", priv)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("backend hit %d times, want 1", hits.Load())
	}

	// Same user under the safe-username form must hit the same entry.
	if _, err := c.Get(ctx, "foka_bot"); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("safe-username variant refetched, hits = %d", hits.Load())
	}
}

func TestExpiredEntryRefetches(t *testing.T) {
	c, hits := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := c.Get(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want refetch after expiry", hits.Load())
	}
}

func TestPurge(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	c.Get(ctx, "a")
	c.Get(ctx, "b")
	if n := c.Purge(); n != 2 {
		t.Errorf("Purge() = %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after purge", c.Len())
	}
}

func TestPurgeExpiredKeepsFresh(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	c.Get(ctx, "old")
	c.now = func() time.Time { return time.Now().Add(30 * time.Second) }
	c.Get(ctx, "fresh")
	c.now = func() time.Time { return time.Now().Add(70 * time.Second) }
	if n := c.PurgeExpired(); n != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want the fresh entry kept", c.Len())
	}
}
