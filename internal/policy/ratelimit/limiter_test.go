package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWaitThrottlesSameHost(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []string
	)
	l := New(Config{
		RequestsPerSecond: 10, // one token every 100ms
		Burst:             1,
		Observer: func(host string, _ time.Duration) {
			mu.Lock()
			observed = append(observed, host)
			mu.Unlock()
		},
	})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://pt.wikipedia.org/wiki/A"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://pt.wikipedia.org/wiki/B"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"pt.wikipedia.org"}, observed)
}

func TestLimiterDifferentHosts(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://pt.wikipedia.org/wiki/A"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://www.wikidata.org/w/api.php"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "second host should not share the first host's bucket")
}

func TestLimiterUnlimited(t *testing.T) {
	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx, "https://example.com"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterCanceledContext(t *testing.T) {
	l := New(Config{RequestsPerSecond: 0.1, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx, "https://example.com"))
	cancel()
	assert.Error(t, l.Wait(ctx, "https://example.com"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "pt.wikipedia.org", hostOf("https://pt.wikipedia.org/wiki/X"))
	assert.Equal(t, "unknown", hostOf("::bad"))
	assert.Equal(t, "unknown", hostOf(""))
}
