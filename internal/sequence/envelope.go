package sequence

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// NewEnvelope copies keys, orders them by T and checks them. Keys sharing a
// T keep their input order, so a later key steps the value at that instant.
func NewEnvelope(keys []Keyframe) (Envelope, error) {
	out := slices.Clone(keys)
	for i, k := range out {
		switch {
		case math.IsNaN(k.T) || math.IsInf(k.T, 0) || k.T < 0:
			return Envelope{}, fmt.Errorf("sequence: keyframe %d has invalid time %v", i, k.T)
		case math.IsNaN(k.V) || math.IsInf(k.V, 0):
			return Envelope{}, fmt.Errorf("sequence: keyframe %d has invalid value %v", i, k.V)
		}
		if _, ok := easings[k.Ease]; !ok {
			return Envelope{}, fmt.Errorf("sequence: keyframe %d has unknown ease %q", i, k.Ease)
		}
	}
	slices.SortStableFunc(out, func(a, b Keyframe) int { return cmp.Compare(a.T, b.T) })
	return Envelope{Keys: out}, nil
}

var easings = map[string]func(float64) float64{
	"":       func(x float64) float64 { return x },
	"linear": func(x float64) float64 { return x },
	"smooth": func(x float64) float64 { return x * x * (3 - 2*x) },
	"cubic":  func(x float64) float64 { return x * x * x * (x*(x*6-15) + 10) },
}

// Eval returns the value at clip time t. Before the first key and after the
// last one the value holds. An empty envelope is 0.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	switch {
	case n == 0:
		return 0
	case t <= e.Keys[0].T:
		return e.Keys[0].V
	case t >= e.Keys[n-1].T:
		return e.Keys[n-1].V
	}
	// first key strictly after t; 1 <= i <= n-1 here
	i, _ := slices.BinarySearchFunc(e.Keys, t, func(k Keyframe, t float64) int {
		if k.T <= t {
			return -1
		}
		return 1
	})
	a, b := e.Keys[i-1], e.Keys[i]
	u := (t - a.T) / (b.T - a.T)
	ease := easings[a.Ease]
	if ease == nil {
		ease = easings[""]
	}
	return a.V + (b.V-a.V)*ease(u)
}
