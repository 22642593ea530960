package ttlcache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveTTL(t *testing.T) {
	_, err := New[string, int](0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	_, err = New[string, int](-time.Second)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestGetAndHasDoNotRenew(t *testing.T) {
	c, err := New[string, string](60 * time.Millisecond)
	require.NoError(t, err)

	c.Set("k", "v")

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		// Constant reads must not keep the entry alive
		c.Get("k")
		c.Has("k")
		time.Sleep(10 * time.Millisecond)
	}

	assert.False(t, c.Has("k"), "entry should have expired despite reads")
}

func TestSetRenewsExpiry(t *testing.T) {
	c, err := New[string, int](100 * time.Millisecond)
	require.NoError(t, err)

	c.Set("k", 1)
	time.Sleep(60 * time.Millisecond)
	c.Set("k", 2)
	time.Sleep(60 * time.Millisecond)

	// 120ms after the first Set, but only 60ms after the renewal
	v, ok := c.Get("k")
	require.True(t, ok, "renewed entry should still be alive")
	assert.Equal(t, 2, v)

	time.Sleep(80 * time.Millisecond)
	assert.False(t, c.Has("k"))
}

func TestOnlyLatestTimerEvicts(t *testing.T) {
	c, err := New[string, int](50 * time.Millisecond)
	require.NoError(t, err)

	var mu sync.Mutex
	var evicted []int
	c.OnExpired(func(key string, value int) {
		mu.Lock()
		evicted = append(evicted, value)
		mu.Unlock()
	})

	c.Set("k", 1)
	time.Sleep(30 * time.Millisecond)
	c.Set("k", 2)
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2}, evicted, "superseded timer must not fire")
}

func TestExpiryListenerSeesRemovedEntry(t *testing.T) {
	c, err := New[string, string](40 * time.Millisecond)
	require.NoError(t, err)

	done := make(chan struct{})
	c.OnExpired(func(key string, value string) {
		assert.Equal(t, "k", key)
		assert.Equal(t, "v", value)
		assert.False(t, c.Has(key), "entry must be gone before listeners run")
		close(done)
	})

	c.Set("k", "v")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expiry listener never ran")
	}
}

func TestListenerFanOutAndOffExpired(t *testing.T) {
	c, err := New[string, int](30 * time.Millisecond)
	require.NoError(t, err)

	var mu sync.Mutex
	calls := map[string]int{}
	listener := func(name string) Listener[string, int] {
		return func(key string, value int) {
			mu.Lock()
			calls[name]++
			mu.Unlock()
		}
	}

	c.OnExpired(listener("a"))
	idB := c.OnExpired(listener("b"))

	c.Set("k1", 1)
	time.Sleep(100 * time.Millisecond)

	c.OffExpired(idB)
	c.Set("k2", 2)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls["a"])
	assert.Equal(t, 1, calls["b"], "removed listener must not see later evictions")
}

func TestPopCancelsEviction(t *testing.T) {
	c, err := New[string, int](30 * time.Millisecond)
	require.NoError(t, err)

	fired := make(chan struct{}, 1)
	c.OnExpired(func(key string, value int) {
		fired <- struct{}{}
	})

	c.Set("k", 7)
	v, ok := c.Pop("k")
	require.True(t, ok)
	assert.Equal(t, 7, v)
	assert.False(t, c.Has("k"))

	// The popped entry's timer must not fire
	select {
	case <-fired:
		t.Fatal("eviction listener ran for a popped entry")
	case <-time.After(100 * time.Millisecond):
	}

	_, ok = c.Pop("k")
	assert.False(t, ok, "second pop must find nothing")
}

func TestDeleteIsIdempotent(t *testing.T) {
	c, err := New[string, int](time.Minute)
	require.NoError(t, err)

	c.Set("k", 1)
	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	assert.False(t, c.Delete("never-set"))
}

func TestClearCancelsAllTimers(t *testing.T) {
	c, err := New[string, int](30 * time.Millisecond)
	require.NoError(t, err)

	fired := make(chan struct{}, 4)
	c.OnExpired(func(key string, value int) {
		fired <- struct{}{}
	})

	c.Set("a", 1)
	c.Set("b", 2)
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())

	select {
	case <-fired:
		t.Fatal("eviction listener ran after Clear")
	case <-time.After(100 * time.Millisecond):
	}
}
