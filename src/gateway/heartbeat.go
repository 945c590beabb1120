package gateway

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Ticker abstracts time.Ticker so the heartbeat cycle is testable without
// real timers.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.Ticker.C }

func newRealTicker(d time.Duration) Ticker {
	return &realTicker{time.NewTicker(d)}
}

// Heartbeat keeps the connection alive at the server-dictated interval.
// Each cycle sends a beat only when the previous one was acknowledged;
// a missed ack reports a stall exactly once and stops the cycle. The ack
// flag is atomic because the reader loop and the timer goroutine both
// touch it.
type Heartbeat struct {
	beat    func(sequence uint64)
	onStall func()
	seq     func() uint64
	log     *slog.Logger

	// newTicker is swapped out by tests.
	newTicker func(d time.Duration) Ticker

	mu       sync.Mutex
	ticker   Ticker
	interval time.Duration
	cancel   context.CancelFunc
	acked    atomic.Bool
	running  atomic.Bool
}

func NewHeartbeat(log *slog.Logger, seq func() uint64, beat func(sequence uint64), onStall func()) *Heartbeat {
	return &Heartbeat{
		beat:      beat,
		onStall:   onStall,
		seq:       seq,
		log:       log,
		newTicker: newRealTicker,
	}
}

// Hello starts the cycle at the given interval. A prior cycle is stopped
// first, the server dictates one interval per connection.
func (h *Heartbeat) Hello(ctx context.Context, interval time.Duration) {
	h.Stop()
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.interval = interval
	h.ticker = h.newTicker(interval)
	h.cancel = cancel
	ticker := h.ticker
	h.mu.Unlock()

	h.acked.Store(true)
	h.running.Store(true)
	go h.run(ctx, ticker)
}

func (h *Heartbeat) run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("heartbeat cycle stopped")
			return
		case <-ticker.C():
			if !h.acked.CompareAndSwap(true, false) {
				// Previous beat was never acknowledged, the
				// connection is stalled. Report once and stop,
				// reconnecting restarts the cycle via Hello.
				h.running.Store(false)
				h.log.Warn("heartbeat ack missed, connection stalled")
				h.onStall()
				return
			}
			h.beat(h.seq())
			h.log.Debug("heartbeat sent", "sequence", h.seq())
		}
	}
}

// Ack marks the most recent beat acknowledged (op 11).
func (h *Heartbeat) Ack() {
	h.acked.Store(true)
}

// RequestBeat answers a server-initiated heartbeat request (op 1)
// immediately, out of band from the cycle. The timer base resets so the
// next scheduled beat is a full interval away and the same window never
// carries two beats.
func (h *Heartbeat) RequestBeat() {
	h.beat(h.seq())
	h.mu.Lock()
	if h.ticker != nil && h.running.Load() {
		h.ticker.Reset(h.interval)
	}
	h.mu.Unlock()
}

// Stop ends the cycle, used on shutdown and before a reconnect.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()
	h.running.Store(false)
	if cancel != nil {
		cancel()
	}
}

// Running reports whether the cycle is active.
func (h *Heartbeat) Running() bool {
	return h.running.Load()
}
