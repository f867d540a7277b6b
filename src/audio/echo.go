package audio

import (
	"fmt"
	"math"
	"strconv"
)

// ----- Delay ----- //

type delay struct {
	cursor int
	past   []float64
}

func (d *delay) setLength(length int) {
	length = max(length, 1)
	if cap(d.past) >= length {
		d.past = d.past[0:length]
	} else {
		d.past = make([]float64, length)
	}
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

func (d *delay) step(in float64) {
	d.past[d.cursor] = in
	d.cursor++
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

func (d *delay) getDelayed() float64 {
	return d.past[d.cursor]
}

// ----- Echo ----- //

const maxEchoDelay = 2000.0 // ms

type echoParams struct {
	enabled      bool
	delay        float64 // ms
	feedbackGain float64 // [0,1)
	mix          float64 // [0,1]
}

func newEchoParams() *echoParams {
	return &echoParams{delay: 375, feedbackGain: 0.35, mix: 0.3}
}

func (e *echoParams) set(key string, value string) error {
	if key == "enabled" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for echo enabled: %w", err)
		}
		e.enabled = enabled
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for echo %s: %w", key, err)
	}
	if math.IsNaN(v) {
		return fmt.Errorf("echo %s must be a number", key)
	}
	switch key {
	case "delay":
		e.delay = math.Min(math.Max(v, 10), maxEchoDelay)
	case "feedback":
		e.feedbackGain = math.Min(math.Max(v, 0), 0.95)
	case "mix":
		e.mix = math.Min(math.Max(v, 0), 1)
	default:
		return fmt.Errorf("unknown echo parameter %q", key)
	}
	return nil
}

type echo struct {
	sampleRate   float64
	enabled      bool
	delay        *delay
	feedbackGain float64
	mix          float64
}

func newEcho(sampleRate float64) *echo {
	return &echo{sampleRate: sampleRate, delay: &delay{}}
}

func (e *echo) applyParams(p *echoParams) {
	e.enabled = p.enabled
	e.delay.setLength(int(e.sampleRate * p.delay / 1000))
	e.feedbackGain = p.feedbackGain
	e.mix = p.mix
}

func (e *echo) process(buf []float64) {
	if !e.enabled {
		return
	}
	for i, in := range buf {
		delayed := e.delay.getDelayed()
		e.delay.step(in + delayed*e.feedbackGain)
		buf[i] = in + delayed*e.mix
	}
}
