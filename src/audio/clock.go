package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/jinjor/flux/src/config"
)

const (
	pulsesPerBeat     = 4  // the internal clock ticks on sixteenth notes
	midiTicksPerPulse = 6  // 24 MIDI clock ticks per beat
	midiPulseLength   = 96 // samples high per MIDI pulse
	maxPendingPulses  = 64
)

// ----- Clock Generator ----- //

// clockGenerator writes the clock signal fed to the engine, either from a
// square wave at the configured tempo or from received MIDI clock ticks.
//
// The midi* methods run on the goroutine receiving MIDI and never block the
// audio goroutine; pulses are handed over through an atomic counter.
type clockGenerator struct {
	sampleRate float64
	source     string
	tempo      float64 // BPM
	phase      float64

	// owned by the MIDI goroutine
	midiTicks int
	stopped   bool

	pending  atomic.Int32
	pulsePos int // position inside the current MIDI pulse, 0 when idle
}

func newClockGenerator(sampleRate float64, source string, tempo float64) *clockGenerator {
	return &clockGenerator{sampleRate: sampleRate, source: source, tempo: tempo}
}

func (c *clockGenerator) setSource(source string) error {
	if source != config.ClockInternal && source != config.ClockMIDI {
		return fmt.Errorf("unknown clock source %q", source)
	}
	c.source = source
	return nil
}

func (c *clockGenerator) setTempo(bpm float64) error {
	if !(bpm > 0 && bpm <= 1000) {
		return fmt.Errorf("tempo must be in (0, 1000], got %v", bpm)
	}
	c.tempo = bpm
	return nil
}

// midiTick counts one MIDI clock message.
func (c *clockGenerator) midiTick() {
	if c.stopped {
		return
	}
	// only the audio goroutine decrements, so the bound holds
	if c.midiTicks%midiTicksPerPulse == 0 && c.pending.Load() < maxPendingPulses {
		c.pending.Add(1)
	}
	c.midiTicks = (c.midiTicks + 1) % midiTicksPerPulse
}

func (c *clockGenerator) midiStart() {
	c.midiTicks = 0
	c.pending.Store(0)
	c.stopped = false
}

func (c *clockGenerator) midiContinue() {
	c.stopped = false
}

func (c *clockGenerator) midiStop() {
	c.stopped = true
	c.pending.Store(0)
}

// takePulse consumes one pending pulse if there is any.
func (c *clockGenerator) takePulse() bool {
	for {
		n := c.pending.Load()
		if n <= 0 {
			return false
		}
		if c.pending.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (c *clockGenerator) fill(out []float64) {
	if c.source == config.ClockMIDI {
		c.fillMIDI(out)
		return
	}
	freq := c.tempo / 60 * pulsesPerBeat / c.sampleRate
	for i := range out {
		if c.phase < 0.5 {
			out[i] = 1
		} else {
			out[i] = 0
		}
		c.phase = positiveMod(c.phase+freq, 1)
	}
}

// fillMIDI plays the pending pulses one after another, each followed by an
// equally long low gap so consecutive pulses stay distinct edges.
func (c *clockGenerator) fillMIDI(out []float64) {
	for i := range out {
		if c.pulsePos == 0 && c.takePulse() {
			c.pulsePos = 1
		}
		if c.pulsePos == 0 {
			out[i] = 0
			continue
		}
		if c.pulsePos <= midiPulseLength {
			out[i] = 1
		} else {
			out[i] = 0
		}
		c.pulsePos++
		if c.pulsePos > 2*midiPulseLength {
			c.pulsePos = 0
		}
	}
}
