package flux

import (
	"sync/atomic"
)

// ----- Control Mode ----- //

// ControlMode decides how spread, bias and steps are distributed across the
// X channels.
type ControlMode int

const (
	ControlModeIdentical ControlMode = iota
	ControlModeBump
	ControlModeTilt

	ControlModeCount = int(ControlModeTilt) + 1
)

var controlModeNames = [ControlModeCount]string{"identical", "bump", "tilt"}

func (m ControlMode) String() string {
	if m < 0 || int(m) >= ControlModeCount {
		return "unknown"
	}
	return controlModeNames[m]
}

// ControlModeFromIndex coerces any index into a valid ControlMode.
func ControlModeFromIndex(i int) ControlMode {
	return ControlMode(clampInt(i, 0, ControlModeCount-1))
}

// Amount returns the effect of a shared control on channel i out of n.
func (m ControlMode) Amount(i int, n int) float64 {
	switch m {
	case ControlModeBump:
		if i == n/2 {
			return 1
		}
		return -1
	case ControlModeTilt:
		if n < 2 {
			return 1
		}
		return -1 + 2*float64(i)/float64(n-1)
	default:
		return 1
	}
}

// ----- Params ----- //

// Params is an immutable snapshot of every engine control. Each field is
// already clamped into its domain.
type Params struct {
	Spread          float64
	Bias            float64
	Steps           float64
	DejaVu          float64
	Length          int
	Scale           int
	Rate            float64
	Jitter          float64
	GateProbability float64
	TModel          Model
	TRange          Range
	PulseWidth      float64
	PulseWidthStd   float64
	ControlMode     ControlMode
	VoltageRange    VoltageRange
	Mix             float64
}

// DefaultParams returns the state of a freshly constructed engine.
func DefaultParams() Params {
	return Params{
		Spread:          0.5,
		Bias:            0.5,
		Steps:           0.5,
		DejaVu:          0,
		Length:          8,
		Scale:           1,
		Rate:            0.5,
		Jitter:          0,
		GateProbability: 0.5,
		TModel:          ModelComplementaryBernoulli,
		TRange:          RangeMedium,
		PulseWidth:      0.5,
		PulseWidthStd:   0,
		ControlMode:     ControlModeIdentical,
		VoltageRange:    VoltageRangeWide,
		Mix:             1,
	}
}

// channel returns the controls of X channel i.
func (p *Params) channel(i int, n int) channelParams {
	amount := p.ControlMode.Amount(i, n)
	return channelParams{
		spread: 0.5 + (p.Spread-0.5)*amount,
		bias:   0.5 + (p.Bias-0.5)*amount,
		steps:  0.5 + (p.Steps-0.5)*amount,
		offset: ScaleOffset{Scale: p.Scale, Octaves: p.VoltageRange.Octaves()},
	}
}

// paramStore publishes Params snapshots. Writers copy, modify and swap; the
// audio goroutine loads one snapshot per block.
type paramStore struct {
	current atomic.Pointer[Params]
}

func (s *paramStore) init(p Params) {
	s.current.Store(&p)
}

func (s *paramStore) load() *Params {
	return s.current.Load()
}

func (s *paramStore) update(f func(p *Params)) {
	for {
		old := s.current.Load()
		next := *old
		f(&next)
		if s.current.CompareAndSwap(old, &next) {
			return
		}
	}
}
