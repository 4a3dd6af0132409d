package frame_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/starfield/internal/frame"
	"github.com/coreman2200/starfield/internal/frame/fake"
)

func TestLoopRunsOncePerFrame(t *testing.T) {
	s := fake.New()
	n := 0
	l := frame.NewLoop(s, func(time.Time) { n++ })
	l.Start()
	l.Start() // no double registration
	assert.Equal(t, 1, s.Pending())

	s.TickN(5)
	assert.Equal(t, 5, n)
	assert.True(t, l.Running())
	assert.NotZero(t, l.Pending())
}

func TestLoopCancelStopsInvocations(t *testing.T) {
	s := fake.New()
	n := 0
	l := frame.NewLoop(s, func(time.Time) { n++ })
	l.Start()
	s.TickN(3)
	l.Cancel()
	l.Cancel()

	s.TickN(10)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 1, s.Cancels)
	assert.False(t, l.Running())
}

func TestLoopCancelFromStep(t *testing.T) {
	s := fake.New()
	n := 0
	var l *frame.Loop
	l = frame.NewLoop(s, func(time.Time) {
		n++
		if n == 2 {
			l.Cancel()
		}
	})
	l.Start()
	s.TickN(6)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, s.Pending())
}

func TestLoopRestartAfterCancel(t *testing.T) {
	s := fake.New()
	n := 0
	l := frame.NewLoop(s, func(time.Time) { n++ })
	l.Start()
	s.Tick()
	l.Cancel()
	l.Start()
	s.Tick()
	assert.Equal(t, 2, n)
}

func TestFakeClockAdvances(t *testing.T) {
	s := fake.New()
	var got []time.Time
	l := frame.NewLoop(s, func(now time.Time) { got = append(got, now) })
	l.Start()
	s.TickN(2)
	if assert.Len(t, got, 2) {
		assert.Equal(t, s.Interval, got[1].Sub(got[0]))
	}
}
