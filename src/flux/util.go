package flux

import "math"

// ----- Utility ----- //

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// maxPhase is the largest phase a held ramp may reach without wrapping.
const maxPhase = 1 - 1.0/(1<<20)

func wrapPhase(phase float64) float64 {
	return phase - math.Floor(phase)
}
