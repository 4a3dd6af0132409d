package frame

import (
	"context"
	"sync"
	"time"
)

// Ticker is a Scheduler backed by time.Ticker. All callbacks and posted
// work run on the goroutine that calls Run.
type Ticker struct {
	interval time.Duration

	mu      sync.Mutex
	next    Handle
	pending map[Handle]Callback
	order   []Handle
	posted  []func()
	stopped bool

	wake chan struct{}
}

// NewTicker returns a scheduler firing fps frames per second (60 when fps <= 0).
func NewTicker(fps int) *Ticker {
	if fps <= 0 {
		fps = 60
	}
	return &Ticker{
		interval: time.Second / time.Duration(fps),
		pending:  map[Handle]Callback{},
		wake:     make(chan struct{}, 1),
	}
}

func (t *Ticker) Interval() time.Duration { return t.interval }

func (t *Ticker) RequestFrame(cb Callback) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.pending[t.next] = cb
	t.order = append(t.order, t.next)
	return t.next
}

func (t *Ticker) CancelFrame(h Handle) {
	t.mu.Lock()
	delete(t.pending, h)
	t.mu.Unlock()
}

// Post queues fn to run on the loop goroutine before the next frame.
// Once Run has returned, fn runs on the caller's goroutine.
func (t *Ticker) Post(fn func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		fn()
		return
	}
	t.posted = append(t.posted, fn)
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits for it to finish or for ctx to end.
func (t *Ticker) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	t.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives frames until ctx is cancelled. Work posted before
// cancellation is drained before Run returns.
func (t *Ticker) Run(ctx context.Context) error {
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.stopped = true
			t.mu.Unlock()
			t.drain()
			return ctx.Err()
		case <-t.wake:
			t.drain()
		case now := <-tick.C:
			t.drain()
			t.frame(now)
		}
	}
}

func (t *Ticker) drain() {
	t.mu.Lock()
	work := t.posted
	t.posted = nil
	t.mu.Unlock()
	for _, fn := range work {
		fn()
	}
}

func (t *Ticker) frame(now time.Time) {
	t.mu.Lock()
	batch := t.order
	t.order = nil
	t.mu.Unlock()
	for _, h := range batch {
		t.mu.Lock()
		cb, ok := t.pending[h]
		delete(t.pending, h)
		t.mu.Unlock()
		if ok {
			cb(now)
		}
	}
}

// Pending reports outstanding frame requests.
func (t *Ticker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
