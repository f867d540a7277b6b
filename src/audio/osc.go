package audio

import (
	"fmt"
	"math"
)

// ----- Wave Kind ----- //

const (
	waveSine = iota
	waveTriangle
	waveSquare
	waveSaw
	waveCount
)

var waveNames = [waveCount]string{"sine", "triangle", "square", "saw"}

func waveKindFromString(s string) (int, error) {
	for i, name := range waveNames {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown wave %q", s)
}

// ----- OSC ----- //

type osc struct {
	kind       int
	phase      float64 // 0-1
	sampleRate float64
}

func newOsc(kind int, sampleRate float64) *osc {
	return &osc{kind: kind, sampleRate: sampleRate}
}

func (o *osc) step(freq float64) float64 {
	p := o.phase
	value := 0.0
	switch o.kind {
	case waveSine:
		value = math.Sin(2 * math.Pi * p)
	case waveTriangle:
		if p < 0.5 {
			value = p*4 - 1
		} else {
			value = p*(-4) + 3
		}
	case waveSquare:
		if p < 0.5 {
			value = 1
		} else {
			value = -1
		}
	case waveSaw:
		value = p*2 - 1
	}
	o.phase = positiveMod(o.phase+freq/o.sampleRate, 1)
	return value
}

func positiveMod(a float64, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}
