package flux

import "math"

// controlRate sets how fast the measured clock frequency is tracked.
const controlRate = 1000.0

// ----- Ramp Extractor ----- //

// rampExtractor follows a clock with a 0..1 phase ramp. The phase restarts on
// every rising edge and is held just below 1 when the next edge is late, so
// the ramp wraps exactly on the clock, the second edge included.
type rampExtractor struct {
	coefficient float64
	phase       float64
	frequency   float64 // cycles per sample
	target      float64
	sinceEdge   int
	locked      bool
	measured    bool
}

func newRampExtractor(sampleRate float64) *rampExtractor {
	r := &rampExtractor{}
	r.init(sampleRate)
	return r
}

func (r *rampExtractor) init(sampleRate float64) {
	r.coefficient = clamp(controlRate/sampleRate, 0, 1)
	r.reset()
}

func (r *rampExtractor) reset() {
	r.phase = 0
	r.frequency = 0
	r.target = 0
	r.sinceEdge = 0
	r.locked = false
	r.measured = false
}

func (r *rampExtractor) process(flags GateFlags) float64 {
	r.sinceEdge++
	if flags.Rising() {
		if r.locked {
			r.target = 1 / float64(r.sinceEdge)
			if !r.measured {
				r.frequency = r.target
				r.measured = true
			}
		}
		r.locked = true
		r.sinceEdge = 0
		r.phase = 0
		return r.phase
	}
	if !r.locked {
		return 0
	}
	if !r.measured {
		// the period is unknown, so every edge is late
		r.phase = maxPhase
		return r.phase
	}
	r.frequency += r.coefficient * (r.target - r.frequency)
	r.phase = math.Min(r.phase+r.frequency, maxPhase)
	return r.phase
}

// ----- Ramp Divider ----- //

// Ratio is a rational clock multiplier P/Q.
type Ratio struct {
	P int
	Q int
}

func (r Ratio) Float() float64 {
	return float64(r.P) / float64(r.Q)
}

// rampDivider derives a ramp running at ratio times the rate of its source.
type rampDivider struct {
	ratio    Ratio
	count    int
	previous float64
}

func newRampDivider() *rampDivider {
	return &rampDivider{ratio: Ratio{1, 1}}
}

func (d *rampDivider) setRatio(ratio Ratio) {
	if ratio.P < 1 {
		ratio.P = 1
	}
	if ratio.Q < 1 {
		ratio.Q = 1
	}
	if ratio != d.ratio {
		d.ratio = ratio
		d.count %= ratio.Q
	}
}

func (d *rampDivider) reset() {
	d.count = 0
	d.previous = 0
}

func (d *rampDivider) process(phase float64) float64 {
	if phase < d.previous {
		d.count++
		if d.count >= d.ratio.Q {
			d.count = 0
		}
	}
	d.previous = phase
	return wrapPhase((float64(d.count) + phase) * d.ratio.Float())
}
