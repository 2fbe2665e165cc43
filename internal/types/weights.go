package types

import "math"

// WeightVector maps analytical modules to blend weights. A valid vector has
// every component in [0,1] and components summing to 1 within 1e-6.
type WeightVector struct {
	Fundamental float64 `json:"fundamental"`
	Technical   float64 `json:"technical"`
	Macro       float64 `json:"macro"`
	News        float64 `json:"news"`
	Pattern     float64 `json:"pattern"`
}

const weightSumTolerance = 1e-6

// Component returns the weight for a module.
func (w WeightVector) Component(m Module) float64 {
	switch m {
	case ModuleFundamental:
		return w.Fundamental
	case ModuleTechnical:
		return w.Technical
	case ModuleMacro:
		return w.Macro
	case ModuleNews:
		return w.News
	case ModulePattern:
		return w.Pattern
	default:
		return 0
	}
}

// Sum is the total of all components.
func (w WeightVector) Sum() float64 {
	return w.Fundamental + w.Technical + w.Macro + w.News + w.Pattern
}

// Valid reports whether every component lies in [0,1] and the vector sums
// to 1 within tolerance.
func (w WeightVector) Valid() bool {
	for _, c := range []float64{w.Fundamental, w.Technical, w.Macro, w.News, w.Pattern} {
		if c < 0 || c > 1 || math.IsNaN(c) {
			return false
		}
	}
	return math.Abs(w.Sum()-1) <= weightSumTolerance
}

// Clamped returns a copy with each component clamped to [0,1], and whether
// any component changed.
func (w WeightVector) Clamped() (WeightVector, bool) {
	clamp := func(v float64) float64 {
		if math.IsNaN(v) || v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	out := WeightVector{
		Fundamental: clamp(w.Fundamental),
		Technical:   clamp(w.Technical),
		Macro:       clamp(w.Macro),
		News:        clamp(w.News),
		Pattern:     clamp(w.Pattern),
	}
	return out, out != w
}

// Normalized scales the vector so components sum to 1. A zero vector
// normalizes to an even split so downstream blending stays defined.
func (w WeightVector) Normalized() WeightVector {
	sum := w.Sum()
	if sum <= 0 {
		even := 1.0 / 5
		return WeightVector{even, even, even, even, even}
	}
	return WeightVector{
		Fundamental: w.Fundamental / sum,
		Technical:   w.Technical / sum,
		Macro:       w.Macro / sum,
		News:        w.News / sum,
		Pattern:     w.Pattern / sum,
	}
}
