package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rps float64, burst int) (*Limiter, *clock) {
	c := &clock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	l := New(rps, burst)
	l.now = c.now
	return l, c
}

func TestAllow_BurstThenRefill(t *testing.T) {
	l, c := newTestLimiter(1, 2)

	require.True(t, l.Allow("1.2.3.4"))
	require.True(t, l.Allow("1.2.3.4"))
	require.False(t, l.Allow("1.2.3.4"))

	require.True(t, l.Allow("5.6.7.8"), "keys are independent")

	c.advance(time.Second)
	require.True(t, l.Allow("1.2.3.4"))
	require.False(t, l.Allow("1.2.3.4"))
}

func TestAllow_SweepsIdleKeys(t *testing.T) {
	l, c := newTestLimiter(1, 1)
	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	c.advance(6 * time.Minute)
	l.Allow("c")
	require.Equal(t, 1, l.Len())
}

func TestNew_ClampsBurst(t *testing.T) {
	l, _ := newTestLimiter(1, 0)
	require.True(t, l.Allow("x"))
	require.False(t, l.Allow("x"))
}

func TestAllow_Concurrent(t *testing.T) {
	l := New(1000, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Allow("shared")
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, l.Len())
}
