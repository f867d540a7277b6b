package flux

import "math"

// maxQuantizationLevels is the level count reached by steps = 1.
const maxQuantizationLevels = 32

// ----- Output Channel ----- //

type channelParams struct {
	spread float64
	bias   float64
	steps  float64
	offset ScaleOffset
}

// quantizationLevels maps the steps control onto a level count. 0 means
// continuous.
func quantizationLevels(steps float64) int {
	return int(math.Round(clamp01(steps) * maxQuantizationLevels))
}

type outputChannel struct {
	sequence  *RandomSequence
	previous  float64 // target of the previous step
	target    float64
	lastPhase float64
	started   bool
}

func newOutputChannel(sequence *RandomSequence) *outputChannel {
	return &outputChannel{sequence: sequence}
}

func (c *outputChannel) reset() {
	c.previous = 0
	c.target = 0
	c.lastPhase = 0
	c.started = false
}

// shape turns one random draw into a voltage in octaves centered on zero.
func shape(u float64, p *channelParams) float64 {
	v := 0.5 + (u-0.5)*2*p.spread
	v += p.bias - 0.5
	v = clamp01(v)
	if levels := quantizationLevels(p.steps); levels > 0 {
		v = (math.Floor(v*float64(levels)) + 0.5) / float64(levels)
		v = math.Min(v, 1)
	}
	span := p.offset.Span()
	note := Scale(p.offset.Scale).Quantize(v * span)
	note = clamp(note, 0, span)
	return note/12 - float64(p.offset.Octaves)/2
}

// next advances the channel by one sample of ramp and returns its voltage.
// A step is taken on every ramp wrap.
func (c *outputChannel) next(p *channelParams, phase float64) float64 {
	if !c.started || phase < c.lastPhase {
		c.previous = c.target
		c.target = shape(c.sequence.Next(), p)
		if !c.started {
			c.previous = c.target
			c.started = true
		}
	}
	c.lastPhase = phase
	if quantizationLevels(p.steps) == 0 {
		return c.previous + (c.target-c.previous)*phase
	}
	return c.target
}
