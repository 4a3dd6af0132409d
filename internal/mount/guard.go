// Package mount tracks which drawable surfaces currently own a live scene.
package mount

import "sync"

// Guard is a per-surface-key registry of active scenes. The zero value is
// not usable; construct one with NewGuard and inject it where needed.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewGuard() *Guard { return &Guard{active: map[string]struct{}{}} }

// Acquire marks key active and reports true, or reports false when key is
// already active. The caller must skip initialization on false.
func (g *Guard) Acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[key]; ok {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

// Release clears the marker for key. Releasing an inactive key is a no-op.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	delete(g.active, key)
	g.mu.Unlock()
}

func (g *Guard) Active(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[key]
	return ok
}

// Len is the number of active keys.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
