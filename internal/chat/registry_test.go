package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(RegistryConfig{Session: SessionConfig{Engine: newFakeEngine()}})

	a, err := r.Create()
	require.NoError(t, err)
	b, err := r.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	// sessions are independent
	a.HandleCommand(context.Background(), "swap 1 eth to usdc")
	assert.NotNil(t, a.PendingSwap())
	assert.Nil(t, b.PendingSwap())

	assert.True(t, r.Delete(a.ID()))
	assert.False(t, r.Delete(a.ID()))
	_, ok = r.Get(a.ID())
	assert.False(t, ok)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistry_SweepEvictsIdle(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry(RegistryConfig{
		Session: SessionConfig{Engine: newFakeEngine()},
		IdleTTL: 10 * time.Minute,
		Now:     clock.Now,
	})

	idle, err := r.Create()
	require.NoError(t, err)
	active, err := r.Create()
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	_, ok := r.Get(active.ID())
	require.True(t, ok)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get(idle.ID())
	assert.False(t, ok)
	_, ok = r.Get(active.ID())
	assert.True(t, ok)
}

func TestRegistry_CapSweepsBeforeRejecting(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry(RegistryConfig{
		Session:     SessionConfig{Engine: newFakeEngine()},
		MaxSessions: 2,
		IdleTTL:     time.Minute,
		Now:         clock.Now,
	})

	_, err := r.Create()
	require.NoError(t, err)
	_, err = r.Create()
	require.NoError(t, err)

	_, err = r.Create()
	assert.ErrorIs(t, err, errs.ErrTooManySessions)
	assert.Equal(t, 2, r.Len())

	clock.Advance(time.Minute)
	s, err := r.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
	_, ok := r.Get(s.ID())
	assert.True(t, ok)
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r := NewRegistry(RegistryConfig{Session: SessionConfig{Engine: newFakeEngine()}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
