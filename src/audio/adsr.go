package audio

import (
	"fmt"
	"math"
	"strconv"
)

// ----- ADSR Params ----- //

const (
	phaseNone = iota
	phaseAttack
	phaseDecay
	phaseSustain
	phaseRelease
)

type adsrParams struct {
	attack  float64 // ms
	decay   float64 // ms
	sustain float64 // 0-1
	release float64 // ms
}

func newADSRParams() *adsrParams {
	return &adsrParams{attack: 5, decay: 80, sustain: 0.6, release: 120}
}

func (a *adsrParams) set(key string, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for adsr %s: %w", key, err)
	}
	if v < 0 || math.IsNaN(v) {
		return fmt.Errorf("adsr %s must not be negative", key)
	}
	switch key {
	case "attack":
		a.attack = v
	case "decay":
		a.decay = v
	case "sustain":
		a.sustain = math.Min(v, 1)
	case "release":
		a.release = v
	default:
		return fmt.Errorf("unknown adsr parameter %q", key)
	}
	return nil
}

// ----- ADSR ----- //

/*
  1 +     x
    |    / \
    |   /   \
  s +  /     x------x
    | /              \
    |/                \
  0 +-----+--+------+---
    |a    |d |      |r |
*/
type adsr struct {
	params         adsrParams
	msPerSample    float64
	value          float64
	phase          int
	phasePos       int
	valueAtNoteOn  float64
	valueAtNoteOff float64
}

func newADSR(sampleRate float64) *adsr {
	return &adsr{msPerSample: 1000 / sampleRate}
}

func (a *adsr) setParams(p *adsrParams) {
	a.params = *p
}

func (a *adsr) reset() {
	a.value = 0
	a.phase = phaseNone
	a.phasePos = 0
}

func (a *adsr) noteOn() {
	a.phase = phaseAttack
	a.phasePos = 0
	a.valueAtNoteOn = a.value
}

func (a *adsr) noteOff() {
	a.phase = phaseRelease
	a.phasePos = 0
	a.valueAtNoteOff = a.value
}

func (a *adsr) step() {
	phaseTime := float64(a.phasePos) * a.msPerSample
	switch a.phase {
	case phaseAttack:
		if phaseTime >= a.params.attack {
			a.phase = phaseDecay
			a.phasePos = 0
			a.value = 1
		} else {
			t := phaseTime / a.params.attack
			a.value = t + (1-t)*a.valueAtNoteOn
			a.phasePos++
		}
	case phaseDecay:
		ended := a.params.decay == 0
		if !ended {
			a.value = setTargetAtTime(1, a.params.sustain, phaseTime/a.params.decay)
			ended = math.Abs(a.value-a.params.sustain) < 0.001
		}
		if ended {
			a.phase = phaseSustain
			a.phasePos = 0
			a.value = a.params.sustain
		} else {
			a.phasePos++
		}
	case phaseSustain:
		a.value = a.params.sustain
	case phaseRelease:
		ended := a.params.release == 0
		if !ended {
			a.value = setTargetAtTime(a.valueAtNoteOff, 0, phaseTime/a.params.release)
			ended = a.value < 0.001
		}
		if ended {
			a.reset()
		} else {
			a.phasePos++
		}
	default:
		a.value = 0
	}
}
