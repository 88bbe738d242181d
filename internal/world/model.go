// Package world combines the two axis positions into a single noisy sensor
// reading for the inspection console.
package world

import "math/rand/v2"

// Model adds independent uniform jitter in [-Noise/2, +Noise/2] to each axis.
type Model struct {
	noise float64
	rng   *rand.Rand
}

// NewModel creates a model. A nil source seeds from the runtime.
func NewModel(noise float64, src rand.Source) *Model {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Model{noise: noise, rng: rand.New(src)}
}

// Noise returns the jitter width.
func (m *Model) Noise() float64 {
	return m.noise
}

// Jitter perturbs one exact position.
func (m *Model) Jitter(v float64) float64 {
	return v + m.noise*m.rng.Float64() - m.noise/2
}

// Observe produces a noisy reading of both axes.
func (m *Model) Observe(x, z float64) (float64, float64) {
	return m.Jitter(x), m.Jitter(z)
}
