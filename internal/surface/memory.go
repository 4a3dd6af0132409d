// Package surface provides drawable targets a scene can be mounted on.
package surface

import (
	"errors"
	"image"
	"sync"

	"github.com/coreman2200/starfield/internal/render"
)

// ErrClosed is returned by a context used after Close.
var ErrClosed = errors.New("surface: context closed")

// Resizer fans viewport changes out to subscribers. Listeners run
// synchronously on the goroutine that calls Notify.
type Resizer struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(width, height int)
}

// OnResize registers fn and returns its unsubscribe func.
func (r *Resizer) OnResize(fn func(width, height int)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = map[int]func(int, int){}
	}
	id := r.next
	r.next++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Resizer) Notify(width, height int) {
	r.mu.Lock()
	fns := make([]func(int, int), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(width, height)
	}
}

// Listeners is the number of live subscriptions.
func (r *Resizer) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Memory is an in-process surface that keeps the last presented frame.
// It can be told to fail binding or presenting.
type Memory struct {
	Resizer

	mu         sync.Mutex
	w, h       int
	bindErr    error
	presentErr error
	binds      int
	frames     int
	closes     int
	last       *image.RGBA
}

func NewMemory(width, height int) *Memory { return &Memory{w: width, h: height} }

func (m *Memory) Size() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.w, m.h
}

// Resize changes the viewport and notifies subscribers.
func (m *Memory) Resize(width, height int) {
	m.mu.Lock()
	m.w, m.h = width, height
	m.mu.Unlock()
	m.Notify(width, height)
}

// FailBind makes subsequent Bind calls return err (nil restores).
func (m *Memory) FailBind(err error) {
	m.mu.Lock()
	m.bindErr = err
	m.mu.Unlock()
}

// FailPresent makes subsequent presents return err (nil restores).
func (m *Memory) FailPresent(err error) {
	m.mu.Lock()
	m.presentErr = err
	m.mu.Unlock()
}

func (m *Memory) Bind() (render.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bindErr != nil {
		return nil, m.bindErr
	}
	m.binds++
	return &memoryContext{m: m}, nil
}

func (m *Memory) Binds() int  { m.mu.Lock(); defer m.mu.Unlock(); return m.binds }
func (m *Memory) Frames() int { m.mu.Lock(); defer m.mu.Unlock(); return m.frames }
func (m *Memory) Closes() int { m.mu.Lock(); defer m.mu.Unlock(); return m.closes }

// Last returns a copy of the most recent frame, nil before the first present.
func (m *Memory) Last() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	cp := image.NewRGBA(m.last.Rect)
	copy(cp.Pix, m.last.Pix)
	return cp
}

type memoryContext struct {
	m      *Memory
	closed bool
}

func (c *memoryContext) Present(f *image.RGBA) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.m.presentErr != nil {
		return c.m.presentErr
	}
	c.m.frames++
	c.m.last = f
	return nil
}

func (c *memoryContext) Close() error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.m.closes++
	return nil
}
