package sequence

import (
	"errors"
	"fmt"
	"math"
)

func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return errors.New("sequence: program has no clips")
	}
	for i, c := range prog.Clips {
		if c.DurationS <= 0 {
			return fmt.Errorf("sequence: clip %d (%s) needs a positive duration", i, c.Name)
		}
		if c.Preset == "" {
			return fmt.Errorf("sequence: clip %d (%s) has no preset", i, c.Name)
		}
	}
	clips := make([]Clip, len(prog.Clips))
	for i, c := range prog.Clips {
		if len(c.Params) > 0 {
			params := make(map[string]Envelope, len(c.Params))
			for name, env := range c.Params {
				e, err := NewEnvelope(env.Keys)
				if err != nil {
					return fmt.Errorf("sequence: clip %d (%s) param %s: %w", i, c.Name, name, err)
				}
				params[name] = e
			}
			c.Params = params
		}
		clips[i] = c
	}
	prog.Clips = clips
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	return nil
}

// Start moves to Running and shows the current clip.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.show()
}

func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and rewinds to the first clip.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
}

// Clip is the active clip, false when nothing is loaded.
func (p *Player) Clip() (Clip, bool) {
	if len(p.prog.Clips) == 0 {
		return Clip{}, false
	}
	return p.prog.Clips[p.idx], true
}

// Seek jumps to absolute program time t, clamped into [0, total).
func (p *Player) Seek(t float64) {
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	total := p.totalDuration()
	if t >= total {
		t = math.Nextafter(total, -1)
	}
	acc := 0.0
	for i, c := range p.prog.Clips {
		if t < acc+c.DurationS {
			p.idx = i
			break
		}
		acc += c.DurationS
	}
	p.nowS = t
	p.show()
}

// Tick advances the timeline by dt seconds.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Clips) == 0 || dt <= 0 {
		return
	}
	p.nowS += dt

	clip, localT := p.currentClipAndLocalT()
	if p.hooks.SetParam != nil {
		for name, env := range clip.Params {
			p.hooks.SetParam(name, env.Eval(localT))
		}
	}
	if localT >= clip.DurationS {
		p.advanceClip()
	}
}

func (p *Player) show() {
	if p.hooks.Show != nil {
		c := p.prog.Clips[p.idx]
		p.hooks.Show(c.Name, c.Preset)
	}
}

func (p *Player) currentClipAndLocalT() (Clip, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].DurationS
	}
	return p.prog.Clips[p.idx], p.nowS - acc
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, c := range p.prog.Clips {
		total += c.DurationS
	}
	return total
}

func (p *Player) nextIndex() int {
	ni := p.idx + 1
	if ni >= len(p.prog.Clips) {
		if p.prog.Loop {
			return 0
		}
		return -1
	}
	return ni
}

func (p *Player) advanceClip() {
	next := p.nextIndex()
	if next == -1 {
		// end of program
		p.State = Idle
		return
	}
	if next == 0 {
		p.nowS -= p.totalDuration()
	}
	p.idx = next
	p.show()
}
