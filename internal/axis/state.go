// Package axis implements a single motor axis: a bounded position integrated
// from a discrete velocity gain, with halt and homing requests.
package axis

import "github.com/smazurov/gantry/internal/channel"

// MaxGain bounds the velocity gain in both directions.
const MaxGain = 2

// HomingGain is the gain held while homing.
const HomingGain = -1

// Mode is the axis operating mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeHoming
)

func (m Mode) String() string {
	if m == ModeHoming {
		return "homing"
	}
	return "normal"
}

// Bounds is the closed travel range of an axis.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp limits v to the range and reports whether it touched a bound.
func (b Bounds) Clamp(v float64) (float64, bool) {
	switch {
	case v >= b.Max:
		return b.Max, true
	case v <= b.Min:
		return b.Min, true
	default:
		return v, false
	}
}

// State is the kinematic state of one axis.
// Position always lies in Bounds and Gain is 0 whenever Position sits on a bound
// after a tick.
type State struct {
	Position float64
	Gain     int
	Mode     Mode
	Velocity float64
	Bounds   Bounds
}

// NewState returns an idle axis parked at the lower bound.
func NewState(velocity float64, bounds Bounds) *State {
	return &State{
		Position: bounds.Min,
		Velocity: velocity,
		Bounds:   bounds,
	}
}

// ApplyCommand folds one command byte into the gain. Bytes received while
// homing are discarded.
func (s *State) ApplyCommand(cmd byte) {
	if s.Mode == ModeHoming {
		return
	}
	s.Gain = NextGain(s.Gain, cmd)
}

// NextGain maps a command byte onto the gain: '+' and '-' step with
// saturation at ±MaxGain, anything else stops the axis.
func NextGain(gain int, cmd byte) int {
	switch cmd {
	case channel.CommandIncrease:
		return min(gain+1, MaxGain)
	case channel.CommandDecrease:
		return max(gain-1, -MaxGain)
	default:
		return 0
	}
}

// Tick integrates one period of motion.
func (s *State) Tick(periodMs int) {
	if s.Mode == ModeHoming {
		s.Gain = HomingGain
	}

	next := s.Position + float64(s.Gain)*s.Velocity*float64(periodMs)/1000
	clamped, hit := s.Bounds.Clamp(next)
	s.Position = clamped
	if !hit {
		return
	}

	s.Gain = 0
	// Homing ends on the lower bound, the same terminal condition as saturation.
	if s.Mode == ModeHoming && clamped == s.Bounds.Min {
		s.Mode = ModeNormal
	}
}

// Halt stops the axis and cancels homing.
func (s *State) Halt() {
	s.Gain = 0
	s.Mode = ModeNormal
}

// Home starts the homing sequence towards the lower bound.
func (s *State) Home() {
	s.Mode = ModeHoming
	s.Gain = HomingGain
}
