package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test", time.Minute), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", payload{Name: "a", Count: 3}); err != nil {
		t.Fatal(err)
	}
	var got payload
	ok, err := c.Get(ctx, "k", &got)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != "a" || got.Count != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	var got payload
	ok, err := c.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestKeysArePrefixed(t *testing.T) {
	c, mr := newTestCache(t)
	if err := c.Set(context.Background(), "k", payload{}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:k") {
		t.Fatal("expected prefixed key test:k")
	}
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	if err := c.Set(ctx, "k", payload{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	var got payload
	ok, err := c.Get(ctx, "k", &got)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected entry to expire")
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	if err := c.Set(ctx, "k", payload{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	ok, err := c.Get(ctx, "k", &payload{})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestNilCacheIsNoOp(t *testing.T) {
	var c *JSONCache
	ctx := context.Background()
	if err := c.Set(ctx, "k", payload{}); err != nil {
		t.Fatal(err)
	}
	ok, err := c.Get(ctx, "k", &payload{})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("nil cache reported a hit")
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatal(err)
	}
}
