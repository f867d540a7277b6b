package flux

// ----- Gate Flags ----- //

// GateFlags describes the state of a gate signal at one sample.
type GateFlags uint8

const (
	GateFlagLow     GateFlags = 0
	GateFlagHigh    GateFlags = 1
	GateFlagRising  GateFlags = 2
	GateFlagFalling GateFlags = 4
)

const clockThreshold = 0.1

func (f GateFlags) High() bool    { return f&GateFlagHigh != 0 }
func (f GateFlags) Rising() bool  { return f&GateFlagRising != 0 }
func (f GateFlags) Falling() bool { return f&GateFlagFalling != 0 }

// ExtractGateFlags derives the flags of the current sample from the flags of
// the previous one.
func ExtractGateFlags(previous GateFlags, high bool) GateFlags {
	wasHigh := previous&GateFlagHigh != 0
	switch {
	case high && wasHigh:
		return GateFlagHigh
	case high:
		return GateFlagHigh | GateFlagRising
	case wasHigh:
		return GateFlagFalling
	default:
		return GateFlagLow
	}
}

// ----- Clock Edge Detector ----- //

type clockEdgeDetector struct {
	previous GateFlags
}

func (d *clockEdgeDetector) process(sample float64) GateFlags {
	d.previous = ExtractGateFlags(d.previous, sample > clockThreshold)
	return d.previous
}
