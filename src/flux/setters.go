package flux

import (
	"fmt"
	"strconv"
)

// ----- Parameter Surface ----- //

// Params returns the current parameter snapshot.
func (p *Processor) Params() Params {
	return *p.params.load()
}

// SetParams replaces every parameter at once. Values are clamped.
func (p *Processor) SetParams(v Params) {
	p.params.update(func(q *Params) {
		*q = sanitize(v)
	})
}

func sanitize(v Params) Params {
	v.Spread = clamp01(v.Spread)
	v.Bias = clamp01(v.Bias)
	v.Steps = clamp01(v.Steps)
	v.DejaVu = clamp01(v.DejaVu)
	v.Length = clampInt(v.Length, 1, DejaVuBufferSize)
	v.Scale = clampInt(v.Scale, 0, ScaleCount-1)
	v.Rate = clamp01(v.Rate)
	v.Jitter = clamp01(v.Jitter)
	v.GateProbability = clamp01(v.GateProbability)
	v.TModel = ModelFromIndex(int(v.TModel))
	v.TRange = RangeFromIndex(int(v.TRange))
	v.PulseWidth = clamp01(v.PulseWidth)
	v.PulseWidthStd = clamp01(v.PulseWidthStd)
	v.ControlMode = ControlModeFromIndex(int(v.ControlMode))
	v.VoltageRange = VoltageRangeFromIndex(int(v.VoltageRange))
	v.Mix = clamp01(v.Mix)
	return v
}

func (p *Processor) SetSpread(v float64) {
	p.params.update(func(q *Params) { q.Spread = clamp01(v) })
}

func (p *Processor) Spread() float64 { return p.params.load().Spread }

func (p *Processor) SetBias(v float64) {
	p.params.update(func(q *Params) { q.Bias = clamp01(v) })
}

func (p *Processor) Bias() float64 { return p.params.load().Bias }

func (p *Processor) SetSteps(v float64) {
	p.params.update(func(q *Params) { q.Steps = clamp01(v) })
}

func (p *Processor) Steps() float64 { return p.params.load().Steps }

func (p *Processor) SetDejaVu(v float64) {
	p.params.update(func(q *Params) { q.DejaVu = clamp01(v) })
}

func (p *Processor) DejaVu() float64 { return p.params.load().DejaVu }

// SetLength sets the loop length in steps, 1..DejaVuBufferSize.
func (p *Processor) SetLength(n int) {
	p.params.update(func(q *Params) { q.Length = clampInt(n, 1, DejaVuBufferSize) })
}

func (p *Processor) Length() int { return p.params.load().Length }

// SetScale selects the quantization scale, 0..ScaleCount-1.
func (p *Processor) SetScale(i int) {
	p.params.update(func(q *Params) { q.Scale = clampInt(i, 0, ScaleCount-1) })
}

func (p *Processor) Scale() int { return p.params.load().Scale }

func (p *Processor) SetRate(v float64) {
	p.params.update(func(q *Params) { q.Rate = clamp01(v) })
}

func (p *Processor) Rate() float64 { return p.params.load().Rate }

func (p *Processor) SetJitter(v float64) {
	p.params.update(func(q *Params) { q.Jitter = clamp01(v) })
}

func (p *Processor) Jitter() float64 { return p.params.load().Jitter }

func (p *Processor) SetGateProbability(v float64) {
	p.params.update(func(q *Params) { q.GateProbability = clamp01(v) })
}

func (p *Processor) GateProbability() float64 { return p.params.load().GateProbability }

func (p *Processor) SetTModel(i int) {
	p.params.update(func(q *Params) { q.TModel = ModelFromIndex(i) })
}

func (p *Processor) TModel() Model { return p.params.load().TModel }

func (p *Processor) SetTRange(i int) {
	p.params.update(func(q *Params) { q.TRange = RangeFromIndex(i) })
}

func (p *Processor) TRange() Range { return p.params.load().TRange }

func (p *Processor) SetPulseWidth(v float64) {
	p.params.update(func(q *Params) { q.PulseWidth = clamp01(v) })
}

func (p *Processor) PulseWidth() float64 { return p.params.load().PulseWidth }

func (p *Processor) SetPulseWidthStd(v float64) {
	p.params.update(func(q *Params) { q.PulseWidthStd = clamp01(v) })
}

func (p *Processor) PulseWidthStd() float64 { return p.params.load().PulseWidthStd }

func (p *Processor) SetControlMode(i int) {
	p.params.update(func(q *Params) { q.ControlMode = ControlModeFromIndex(i) })
}

func (p *Processor) ControlMode() ControlMode { return p.params.load().ControlMode }

func (p *Processor) SetVoltageRange(i int) {
	p.params.update(func(q *Params) { q.VoltageRange = VoltageRangeFromIndex(i) })
}

func (p *Processor) VoltageRange() VoltageRange { return p.params.load().VoltageRange }

func (p *Processor) SetMix(v float64) {
	p.params.update(func(q *Params) { q.Mix = clamp01(v) })
}

func (p *Processor) Mix() float64 { return p.params.load().Mix }

// ----- Text Commands ----- //

// Set parses value and applies it to the parameter named key. Enumerated
// parameters accept an index or a name.
func (p *Processor) Set(key string, value string) error {
	switch key {
	case "spread", "bias", "steps", "deja_vu", "rate", "jitter",
		"gate_probability", "pulse_width", "pulse_width_std", "mix":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.floatSetter(key)(v)
	case "length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.SetLength(n)
	case "scale":
		i, err := parseEnum(value, ScaleIndexFromString)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.SetScale(i)
	case "t_model":
		i, err := parseEnum(value, func(s string) (int, bool) {
			m, ok := ModelFromString(s)
			return int(m), ok
		})
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.SetTModel(i)
	case "t_range":
		i, err := parseEnum(value, indexOf(rangeNames[:]))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.SetTRange(i)
	case "control_mode":
		i, err := parseEnum(value, indexOf(controlModeNames[:]))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.SetControlMode(i)
	case "voltage_range":
		i, err := parseEnum(value, indexOf(voltageRangeNames[:]))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		p.SetVoltageRange(i)
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (p *Processor) floatSetter(key string) func(float64) {
	switch key {
	case "spread":
		return p.SetSpread
	case "bias":
		return p.SetBias
	case "steps":
		return p.SetSteps
	case "deja_vu":
		return p.SetDejaVu
	case "rate":
		return p.SetRate
	case "jitter":
		return p.SetJitter
	case "gate_probability":
		return p.SetGateProbability
	case "pulse_width":
		return p.SetPulseWidth
	case "pulse_width_std":
		return p.SetPulseWidthStd
	default:
		return p.SetMix
	}
}

func parseEnum(value string, byName func(string) (int, bool)) (int, error) {
	if i, ok := byName(value); ok {
		return i, nil
	}
	return strconv.Atoi(value)
}

func indexOf(names []string) func(string) (int, bool) {
	return func(s string) (int, bool) {
		for i, name := range names {
			if name == s {
				return i, true
			}
		}
		return 0, false
	}
}
