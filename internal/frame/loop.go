// Package frame schedules per-frame callbacks the way a display refresh does:
// every request is one-shot and must be renewed from inside the callback.
package frame

import "time"

// Callback runs once, before the next repaint.
type Callback func(now time.Time)

// Handle identifies a pending request. The zero Handle is never issued.
type Handle uint64

// Scheduler is the per-frame scheduling primitive.
type Scheduler interface {
	RequestFrame(cb Callback) Handle
	// CancelFrame drops a pending request. Unknown or already-fired handles are ignored.
	CancelFrame(h Handle)
}

// Loop re-requests step every frame until cancelled. It is not safe for
// concurrent use; drive it from the scheduler's goroutine.
type Loop struct {
	sched   Scheduler
	step    Callback
	handle  Handle
	running bool
}

func NewLoop(s Scheduler, step Callback) *Loop {
	return &Loop{sched: s, step: step}
}

// Start schedules the first frame. Starting a running loop is a no-op.
func (l *Loop) Start() {
	if l.running {
		return
	}
	l.running = true
	l.handle = l.sched.RequestFrame(l.tick)
}

func (l *Loop) tick(now time.Time) {
	l.handle = 0
	if !l.running {
		return
	}
	l.step(now)
	// step may have cancelled us
	if l.running {
		l.handle = l.sched.RequestFrame(l.tick)
	}
}

// Cancel stops the loop; step is not invoked again once Cancel returns.
func (l *Loop) Cancel() {
	l.running = false
	if l.handle != 0 {
		l.sched.CancelFrame(l.handle)
		l.handle = 0
	}
}

func (l *Loop) Running() bool { return l.running }

// Pending reports the outstanding request, 0 when none.
func (l *Loop) Pending() Handle { return l.handle }
