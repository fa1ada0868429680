package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
)

func result(context string) models.RetrievalResult {
	return models.RetrievalResult{Context: context}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(4, time.Minute)
	p := Params{K: 5, ScoreThreshold: 0.3}

	c.Put("query", p, result("ctx"))
	got, ok := c.Get("query", p)
	require.True(t, ok)
	assert.Equal(t, "ctx", got.Context)
}

func TestDistinctParamsAreDistinctEntries(t *testing.T) {
	c := New(4, time.Minute)
	p1 := Params{K: 5}
	p2 := Params{K: 10}

	c.Put("query", p1, result("five"))
	c.Put("query", p2, result("ten"))

	got, ok := c.Get("query", p1)
	require.True(t, ok)
	assert.Equal(t, "five", got.Context)
	got, ok = c.Get("query", p2)
	require.True(t, ok)
	assert.Equal(t, "ten", got.Context)
}

func TestTTLExpiry(t *testing.T) {
	c := New(4, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	p := Params{K: 5}

	c.Put("query", p, result("ctx"))
	_, ok := c.Get("query", p)
	require.True(t, ok)

	now = now.Add(time.Minute) // no intervening writes
	_, ok = c.Get("query", p)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Expirations)
	assert.Equal(t, 0, c.Len())
}

func TestLRUEvictionOrder(t *testing.T) {
	c := New(2, time.Minute)
	pa, pb, pc := Params{K: 1}, Params{K: 2}, Params{K: 3}

	c.Put("a", pa, result("A"))
	c.Put("b", pb, result("B"))
	_, ok := c.Get("a", pa) // a is now most recent
	require.True(t, ok)
	c.Put("c", pc, result("C")) // must evict b, not a

	_, ok = c.Get("b", pb)
	assert.False(t, ok, "least-recently-used entry should be evicted")
	_, ok = c.Get("a", pa)
	assert.True(t, ok)
	_, ok = c.Get("c", pc)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestEvictionByAccessNotInsertion(t *testing.T) {
	c := New(3, time.Minute)
	for i, q := range []string{"one", "two", "three"} {
		c.Put(q, Params{K: i + 1}, result(q))
	}
	// touch the oldest two so "three" becomes least recently used
	c.Get("one", Params{K: 1})
	c.Get("two", Params{K: 2})
	c.Put("four", Params{K: 4}, result("four"))

	_, ok := c.Get("three", Params{K: 3})
	assert.False(t, ok)
	_, ok = c.Get("one", Params{K: 1})
	assert.True(t, ok)
}

func TestInvalidateSingleQuery(t *testing.T) {
	c := New(8, time.Minute)
	c.Put("keep", Params{K: 1}, result("keep"))
	c.Put("drop", Params{K: 1}, result("drop1"))
	c.Put("drop", Params{K: 2}, result("drop2"))

	c.Invalidate("drop")

	_, ok := c.Get("drop", Params{K: 1})
	assert.False(t, ok)
	_, ok = c.Get("drop", Params{K: 2})
	assert.False(t, ok)
	_, ok = c.Get("keep", Params{K: 1})
	assert.True(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	c := New(8, time.Minute)
	c.Put("a", Params{K: 1}, result("a"))
	c.Put("b", Params{K: 1}, result("b"))

	c.Invalidate("")
	assert.Equal(t, 0, c.Len())
}

func TestStatsMonotonic(t *testing.T) {
	c := New(2, time.Minute)
	p := Params{K: 1}

	c.Get("missing", p)
	c.Put("q", p, result("r"))
	c.Get("q", p)
	c.Get("q", p)

	st := c.Stats()
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q := fmt.Sprintf("query-%d", j%20)
				p := Params{K: n + 1}
				c.Put(q, p, result(q))
				c.Get(q, p)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
