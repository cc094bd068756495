package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T) *time.Time {
	base := time.Now()
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })
	return &base
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := freezeClock(t)
	c := NewTTLCache[string, string](time.Second)

	c.Set("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)

	*clock = clock.Add(2 * time.Second)
	_, ok = c.Get("k")
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestTTLCache_NoTTL(t *testing.T) {
	clock := freezeClock(t)
	c := NewTTLCache[int, int](0)
	c.Set(1, 10)
	*clock = clock.Add(24 * time.Hour)
	v, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, 10, v)

	c.Invalidate(1)
	_, ok = c.Get(1)
	require.False(t, ok)
}

func TestTTLCache_GetOrLoad(t *testing.T) {
	c := NewTTLCache[string, int](time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrLoad("answer", load)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	v, err = c.GetOrLoad("answer", load)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = c.GetOrLoad("broken", func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	_, ok := c.Get("broken")
	require.False(t, ok)
}

func TestTTLCache_Concurrent(t *testing.T) {
	c := NewTTLCache[int, int](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 100; r++ {
				c.Set(i, r)
				_, _ = c.Get(i)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 100, c.Len())
}

func TestTTLCache_GetOrLoadSharesConcurrentMisses(t *testing.T) {
	c := NewTTLCache[string, int](time.Minute)
	var (
		mu    sync.Mutex
		calls int
	)
	started := make(chan struct{})
	release := make(chan struct{})
	load := func() (int, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
		}
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad("k", load)
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
			results[i] = v
		}()
	}
	<-started
	close(release)
	wg.Wait()

	require.Equal(t, 1, calls)
	for _, v := range results {
		require.Equal(t, 7, v)
	}
}
