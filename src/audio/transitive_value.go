package audio

import "math"

// ----- Transitive Value ----- //

// transitiveValue moves towards its target on an exponential curve. It is
// used for the pitch glide of the voices.
type transitiveValue struct {
	msPerSample  float64
	duration     float64 // ms
	endThreshold float64
	initialValue float64
	targetValue  float64
	value        float64
	pos          int
	moving       bool
}

func newTransitiveValue(sampleRate float64) *transitiveValue {
	return &transitiveValue{msPerSample: 1000 / sampleRate}
}

func (tv *transitiveValue) init(value float64) {
	tv.initialValue = value
	tv.targetValue = value
	tv.value = value
	tv.pos = 0
	tv.moving = false
}

func (tv *transitiveValue) exponential(duration float64, targetValue float64, endThreshold float64) {
	if duration <= 0 {
		tv.init(targetValue)
		return
	}
	tv.duration = duration
	tv.endThreshold = endThreshold
	tv.pos = 0
	tv.initialValue = tv.value
	tv.targetValue = targetValue
	tv.moving = true
}

// step advances one sample and reports whether the transition ended.
func (tv *transitiveValue) step() bool {
	if !tv.moving {
		return false
	}
	tv.pos++
	t := float64(tv.pos) * tv.msPerSample / tv.duration
	tv.value = setTargetAtTime(tv.initialValue, tv.targetValue, t)
	if math.Abs(tv.value-tv.targetValue) < tv.endThreshold {
		tv.end()
		return true
	}
	return false
}

func (tv *transitiveValue) end() {
	tv.value = tv.targetValue
	tv.pos = 0
	tv.moving = false
}

// 63% closer to target when pos=1.0
func setTargetAtTime(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}
