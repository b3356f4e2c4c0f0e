package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestSetAndGet(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", 7)
	v, ok := c.Get(ctx, "k")
	is.True(ok)
	is.Equal(v, 7)

	_, ok = c.Get(ctx, "missing")
	is.True(!ok)
}

func TestExpiry(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.SetWithTTL(ctx, "short", "v", 10*time.Millisecond)
	_, ok := c.Get(ctx, "short")
	is.True(ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get(ctx, "short")
	is.True(!ok) // expired entries read as absent
}

func TestDelete(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", "v")
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	is.True(!ok)

	// deleting an absent key is fine
	c.Delete(ctx, "k")
}

func TestOverwriteKeepsSingleEntry(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 2})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	// overwriting at capacity must not evict anything
	c.Set(ctx, "a", 3)

	v, ok := c.Get(ctx, "a")
	is.True(ok)
	is.Equal(v, 3)
	_, ok = c.Get(ctx, "b")
	is.True(ok)
}

func TestMaxItemsEvictsClosestToExpiry(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 3})
	defer c.Close()
	ctx := context.Background()

	c.SetWithTTL(ctx, "dying", "v", time.Second)
	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)

	c.Set(ctx, "c", 3)

	_, ok := c.Get(ctx, "dying")
	is.True(!ok) // the entry closest to expiry made room
	for _, k := range []string{"a", "b", "c"} {
		_, ok := c.Get(ctx, k)
		is.True(ok)
	}
}

func TestDeletePrefix(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "count:42:", 1)
	c.Set(ctx, "count:42:epilepsy", 2)
	c.Set(ctx, "count:43:", 3)

	c.DeletePrefix(ctx, "count:42:")
	_, ok := c.Get(ctx, "count:42:")
	is.True(!ok)
	_, ok = c.Get(ctx, "count:42:epilepsy")
	is.True(!ok)
	_, ok = c.Get(ctx, "count:43:")
	is.True(ok) // other prefixes untouched
}

func TestPurge(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), i)
	}
	c.Purge()
	for i := 0; i < 5; i++ {
		_, ok := c.Get(ctx, fmt.Sprintf("k%d", i))
		is.True(!ok)
	}
}

func TestJanitorRemovesExpired(t *testing.T) {
	is := is.New(t)
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: 10 * time.Millisecond})
	defer c.Close()
	ctx := context.Background()

	c.SetWithTTL(ctx, "short", "v", 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	c.mu.RLock()
	_, present := c.items["short"]
	c.mu.RUnlock()
	is.True(!present) // janitor dropped it, not just the read path
}
