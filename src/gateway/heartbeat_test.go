package gateway

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	c chan time.Time

	mu     sync.Mutex
	resets []time.Duration
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{c: make(chan time.Time)}
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resets = append(t.resets, d)
}

func (t *fakeTicker) Stop() {}

func (t *fakeTicker) tick() { t.c <- time.Now() }

type heartbeatHarness struct {
	hb     *Heartbeat
	ticker *fakeTicker
	beats  chan uint64
	stalls chan struct{}
}

func newHeartbeatHarness(seq uint64) *heartbeatHarness {
	h := &heartbeatHarness{
		ticker: newFakeTicker(),
		beats:  make(chan uint64, 16),
		stalls: make(chan struct{}, 16),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.hb = NewHeartbeat(logger,
		func() uint64 { return seq },
		func(s uint64) { h.beats <- s },
		func() { h.stalls <- struct{}{} },
	)
	h.hb.newTicker = func(d time.Duration) Ticker { return h.ticker }
	return h
}

func waitBeat(t *testing.T, h *heartbeatHarness) uint64 {
	t.Helper()
	select {
	case s := <-h.beats:
		return s
	case <-time.After(time.Second):
		t.Fatal("expected a heartbeat")
		return 0
	}
}

func TestHeartbeatBeatsWhileAcked(t *testing.T) {
	h := newHeartbeatHarness(7)
	h.hb.Hello(context.Background(), 41250*time.Millisecond)
	defer h.hb.Stop()

	h.ticker.tick()
	assert.Equal(t, uint64(7), waitBeat(t, h))

	h.hb.Ack()
	h.ticker.tick()
	waitBeat(t, h)
	assert.Empty(t, h.stalls)
}

func TestHeartbeatMissedAckStallsExactlyOnce(t *testing.T) {
	h := newHeartbeatHarness(1)
	h.hb.Hello(context.Background(), time.Minute)

	h.ticker.tick()
	waitBeat(t, h)

	// No Ack arrives before the next cycle.
	h.ticker.tick()
	select {
	case <-h.stalls:
	case <-time.After(time.Second):
		t.Fatal("expected a stall report")
	}
	assert.False(t, h.hb.Running())
	assert.Empty(t, h.beats)
	assert.Empty(t, h.stalls, "a single stall must be reported once")
}

func TestHeartbeatRequestBeatIsOutOfBand(t *testing.T) {
	h := newHeartbeatHarness(3)
	h.hb.Hello(context.Background(), time.Minute)
	defer h.hb.Stop()

	h.hb.RequestBeat()
	assert.Equal(t, uint64(3), waitBeat(t, h))

	// The timer base resets so the same window never carries two beats.
	h.ticker.mu.Lock()
	resets := len(h.ticker.resets)
	h.ticker.mu.Unlock()
	require.Equal(t, 1, resets)

	// The scheduled cycle still beats afterwards.
	h.ticker.tick()
	waitBeat(t, h)
}

func TestHeartbeatHelloRestartsCycle(t *testing.T) {
	h := newHeartbeatHarness(1)
	h.hb.Hello(context.Background(), time.Minute)
	require.True(t, h.hb.Running())
	h.hb.Stop()
	assert.False(t, h.hb.Running())

	h.hb.Hello(context.Background(), time.Minute)
	defer h.hb.Stop()
	assert.True(t, h.hb.Running())
}
