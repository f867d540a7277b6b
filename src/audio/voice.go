package audio

// glide time of a voice moving to a new pitch, ms
const glideTime = 8.0

// ----- Voice ----- //

// voice sonifies one X/T pair: X sets the pitch and T gates the envelope.
type voice struct {
	osc  *osc
	adsr *adsr
	freq *transitiveValue
	gate bool
}

func newVoice(kind int, sampleRate float64) *voice {
	return &voice{
		osc:  newOsc(kind, sampleRate),
		adsr: newADSR(sampleRate),
		freq: newTransitiveValue(sampleRate),
	}
}

func (v *voice) reset(freq float64) {
	v.adsr.reset()
	v.freq.init(freq)
	v.gate = false
}

// process renders len(out) samples. x holds frequency ratios and t gates.
func (v *voice) process(p *adsrParams, baseFreq float64, x []float64, t []float64, out []float64) {
	v.adsr.setParams(p)
	for i := range out {
		high := t[i] > 0.5
		if high && !v.gate {
			v.adsr.noteOn()
		} else if !high && v.gate {
			v.adsr.noteOff()
		}
		v.gate = high

		if target := baseFreq * (1 + x[i]); target != v.freq.targetValue {
			v.freq.exponential(glideTime, target, 0.01)
		}
		v.freq.step()
		v.adsr.step()
		out[i] = v.osc.step(v.freq.value) * v.adsr.value
	}
}
