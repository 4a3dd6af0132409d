// Package fake provides a manually ticked frame.Scheduler for tests.
package fake

import (
	"time"

	"github.com/coreman2200/starfield/internal/frame"
)

// Scheduler only fires callbacks when Tick is called. The clock starts at
// the zero Unix time and advances by Interval on each Tick.
type Scheduler struct {
	Interval time.Duration

	now     time.Time
	next    frame.Handle
	pending map[frame.Handle]frame.Callback
	order   []frame.Handle

	Requests    int
	Cancels     int
	Invocations int
}

func New() *Scheduler {
	return &Scheduler{
		Interval: time.Second / 60,
		now:      time.Unix(0, 0),
		pending:  map[frame.Handle]frame.Callback{},
	}
}

func (s *Scheduler) RequestFrame(cb frame.Callback) frame.Handle {
	s.Requests++
	s.next++
	s.pending[s.next] = cb
	s.order = append(s.order, s.next)
	return s.next
}

func (s *Scheduler) CancelFrame(h frame.Handle) {
	if _, ok := s.pending[h]; ok {
		s.Cancels++
		delete(s.pending, h)
	}
}

// Tick fires every callback requested before this call.
func (s *Scheduler) Tick() {
	s.now = s.now.Add(s.Interval)
	batch := s.order
	s.order = nil
	for _, h := range batch {
		cb, ok := s.pending[h]
		if !ok {
			continue
		}
		delete(s.pending, h)
		s.Invocations++
		cb(s.now)
	}
}

func (s *Scheduler) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func (s *Scheduler) Pending() int { return len(s.pending) }

func (s *Scheduler) Now() time.Time { return s.now }
