package flux

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rendered struct {
	x      [3][]float64
	t      [3][]float64
	master []float64
}

// render runs p over clock in blocks of blockSize and keeps every output.
func render(p *Processor, clock []float64, blockSize int) *rendered {
	n := len(clock)
	r := &rendered{master: make([]float64, 0, n)}
	for k := range r.x {
		r.x[k] = make([]float64, n)
		r.t[k] = make([]float64, n)
	}
	for start := 0; start < n; start += blockSize {
		size := min(blockSize, n-start)
		p.Process(clock, r.x[0], r.x[1], r.x[2], r.t[0], r.t[1], r.t[2], start, size)
		r.master = append(r.master, p.ramps.Master[:size]...)
	}
	return r
}

func TestOutputsAreFiniteAndBounded(t *testing.T) {
	clock := squareClock(2000, 30)
	lo := math.Exp2(MinOctaves) - 1
	hi := math.Exp2(MaxOctaves) - 1
	for m := 0; m < ModelCount; m++ {
		for c := 0; c < ControlModeCount; c++ {
			for r := 0; r < VoltageRangeCount; r++ {
				for _, v := range []float64{0, 1} {
					p := NewProcessor(48000, 17)
					p.SetParams(Params{
						Spread: v, Bias: 1 - v, Steps: v, DejaVu: v, Length: 1 + int(v*15),
						Scale: m % ScaleCount, Rate: v, Jitter: 1 - v, GateProbability: v,
						TModel: Model(m), TRange: Range(r), PulseWidth: v, PulseWidthStd: 1,
						ControlMode: ControlMode(c), VoltageRange: VoltageRange(r), Mix: 1,
					})
					for _, blockSize := range []int{1, 7, 256} {
						out := render(p, clock, blockSize)
						for k := 0; k < 3; k++ {
							for i := range clock {
								if x := out.x[k][i]; !(x >= lo && x <= hi) {
									t.Fatalf("model=%d mode=%d range=%d block=%d: X%d[%d] = %v", m, c, r, blockSize, k+1, i, x)
								}
								if g := out.t[k][i]; g != 0 && g != 1 {
									t.Fatalf("model=%d mode=%d range=%d block=%d: T%d[%d] = %v", m, c, r, blockSize, k+1, i, g)
								}
							}
						}
					}
				}
			}
		}
	}
}

func TestSettersClamp(t *testing.T) {
	p := NewProcessor(48000, 1)
	floats := []struct {
		name string
		set  func(float64)
		get  func() float64
	}{
		{"spread", p.SetSpread, p.Spread},
		{"bias", p.SetBias, p.Bias},
		{"steps", p.SetSteps, p.Steps},
		{"deja_vu", p.SetDejaVu, p.DejaVu},
		{"rate", p.SetRate, p.Rate},
		{"jitter", p.SetJitter, p.Jitter},
		{"gate_probability", p.SetGateProbability, p.GateProbability},
		{"pulse_width", p.SetPulseWidth, p.PulseWidth},
		{"pulse_width_std", p.SetPulseWidthStd, p.PulseWidthStd},
		{"mix", p.SetMix, p.Mix},
	}
	for _, f := range floats {
		for _, v := range []float64{-3, 0, 0.25, 1, 42, math.NaN(), math.Inf(1)} {
			f.set(v)
			got := f.get()
			assert.GreaterOrEqual(t, got, 0.0, f.name)
			assert.LessOrEqual(t, got, 1.0, f.name)
			f.set(got)
			assert.Equal(t, got, f.get(), "%s is idempotent", f.name)
		}
	}

	p.SetLength(0)
	assert.Equal(t, 1, p.Length())
	p.SetLength(99)
	assert.Equal(t, DejaVuBufferSize, p.Length())
	p.SetScale(-1)
	assert.Equal(t, 0, p.Scale())
	p.SetTModel(99)
	assert.Equal(t, ModelMarkov, p.TModel())
	p.SetTRange(-4)
	assert.Equal(t, RangeSlow, p.TRange())
	p.SetControlMode(7)
	assert.Equal(t, ControlModeTilt, p.ControlMode())
	p.SetVoltageRange(7)
	assert.Equal(t, VoltageRangeFull, p.VoltageRange())
}

func TestSetParamsSanitizes(t *testing.T) {
	p := NewProcessor(48000, 1)
	p.SetParams(Params{Spread: 2, Length: -1, Scale: 99, TModel: -3, Mix: math.NaN()})
	got := p.Params()
	assert.Equal(t, 1.0, got.Spread)
	assert.Equal(t, 1, got.Length)
	assert.Equal(t, ScaleCount-1, got.Scale)
	assert.Equal(t, ModelComplementaryBernoulli, got.TModel)
	assert.Equal(t, 0.0, got.Mix)
}

func TestSetParsesCommands(t *testing.T) {
	p := NewProcessor(48000, 1)
	require.NoError(t, p.Set("spread", "0.75"))
	assert.Equal(t, 0.75, p.Spread())
	require.NoError(t, p.Set("mix", "3"))
	assert.Equal(t, 1.0, p.Mix())
	require.NoError(t, p.Set("length", "4"))
	assert.Equal(t, 4, p.Length())
	require.NoError(t, p.Set("t_model", "markov"))
	assert.Equal(t, ModelMarkov, p.TModel())
	require.NoError(t, p.Set("t_model", "2"))
	assert.Equal(t, ModelDrums, p.TModel())
	require.NoError(t, p.Set("scale", "pentatonic"))
	assert.Equal(t, 3, p.Scale())
	require.NoError(t, p.Set("t_range", "fast"))
	assert.Equal(t, RangeFast, p.TRange())
	require.NoError(t, p.Set("control_mode", "bump"))
	assert.Equal(t, ControlModeBump, p.ControlMode())
	require.NoError(t, p.Set("voltage_range", "narrow"))
	assert.Equal(t, VoltageRangeNarrow, p.VoltageRange())

	err := p.Set("spread", "lots")
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.Error(t, p.Set("scale", "lydian"))
	assert.EqualError(t, p.Set("volume", "1"), `unknown parameter "volume"`)
	assert.Equal(t, 0.75, p.Spread())
}

func TestVoltageToRatioBounds(t *testing.T) {
	lo := math.Exp2(MinOctaves) - 1
	hi := math.Exp2(MaxOctaves) - 1
	for v := -10.0; v <= 10; v += 0.25 {
		for _, mix := range []float64{0, 0.5, 1} {
			x := voltageToRatio(v, mix)
			assert.GreaterOrEqual(t, x, lo)
			assert.LessOrEqual(t, x, hi)
		}
	}
	assert.Equal(t, 0.0, voltageToRatio(1.3, 0))
	assert.Equal(t, 1.0, voltageToRatio(1, 1))
}

func TestResetRestoresDefaults(t *testing.T) {
	p := NewProcessor(48000, 1)
	p.SetDejaVu(1)
	render(p, squareClock(500, 20), 64)
	require.True(t, p.sequences[0].written[0])

	p.Reset()
	x, gates := p.Outputs()
	assert.Equal(t, [3]float64{DefaultVoltage, DefaultVoltage, DefaultVoltage}, x)
	assert.Equal(t, [3]float64{}, gates)
	for _, s := range p.sequences {
		assert.Equal(t, [DejaVuBufferSize]bool{}, s.written)
		assert.Equal(t, 0, s.cursor)
	}
	for _, s := range p.generator.sequences() {
		assert.Equal(t, [DejaVuBufferSize]bool{}, s.written)
	}
}

func TestTickOnFreshEngine(t *testing.T) {
	p := NewProcessor(48000, 1)
	assert.Equal(t, DefaultVoltage, p.X1())
	assert.Equal(t, DefaultVoltage, p.X2())
	assert.Equal(t, DefaultVoltage, p.X3())
	require.NotPanics(t, p.Tick)
	assert.Equal(t, 1.0, p.T2(), "the first edge starts the master ramp low")
	require.NotPanics(t, p.TickClockOff)
	for _, x := range []float64{p.X1(), p.X2(), p.X3()} {
		assert.False(t, math.IsNaN(x))
	}
	assert.Contains(t, []float64{0, 1}, p.T1())
	assert.Contains(t, []float64{0, 1}, p.T3())
}

func TestProcessIgnoresBadRanges(t *testing.T) {
	p := NewProcessor(48000, 1)
	buf := func() []float64 { return make([]float64, 8) }
	x1 := buf()
	assert.NotPanics(t, func() {
		p.Process(buf(), x1, buf(), buf(), buf(), buf(), buf(), -1, 4)
		p.Process(buf(), x1, buf(), buf(), buf(), buf(), buf(), 0, 0)
		p.Process(buf(), x1, buf(), buf(), buf(), buf(), buf(), 6, 100)
		p.Process(buf(), x1, make([]float64, 2), buf(), buf(), buf(), buf(), 0, 8)
	})
	assert.Equal(t, make([]float64, 4), x1[2:6], "short buffers limit the block")
}

func TestMasterRampFollowsClockPeriod(t *testing.T) {
	const period = 100
	p := NewProcessor(48000, 1)
	p.SetRate(0.5)
	p.SetJitter(0)
	out := render(p, squareClock(period*20, period), 64)

	indices := wraps(out.master)
	require.GreaterOrEqual(t, len(indices), 15)
	for k := 1; k < len(indices); k++ {
		assert.Equal(t, period, indices[k]-indices[k-1])
	}
}

func TestGateProbabilityOneFiresT1EveryStep(t *testing.T) {
	p := NewProcessor(48000, 1)
	p.SetGateProbability(1)
	p.SetTModel(int(ModelComplementaryBernoulli))
	out := render(p, squareClock(1000, 20), 32)

	indices := wraps(out.master)
	require.GreaterOrEqual(t, len(indices), 40)
	for _, i := range indices {
		assert.Equal(t, 1.0, out.t[0][i], "sample %d", i)
	}
	for i := range out.t[2] {
		assert.Zero(t, out.t[2][i])
	}
}

func TestDejaVuLoopsVoltages(t *testing.T) {
	const period, length = 40, 4
	p := NewProcessor(48000, 9)
	p.SetDejaVu(1)
	p.SetLength(length)
	p.SetSteps(1)
	p.SetGateProbability(1)
	out := render(p, squareClock(period*30, period), 50)

	var values []float64
	for i := 2*period + period/2; i < len(out.x[0]); i += period {
		values = append(values, out.x[0][i])
	}
	for k := length; k < len(values); k++ {
		assert.Equal(t, values[k-length], values[k], "step %d", k)
	}
}

func TestChannelsAreDistinct(t *testing.T) {
	p := NewProcessor(48000, 9)
	p.SetSteps(1)
	p.SetGateProbability(1)
	out := render(p, squareClock(4000, 40), 128)
	differ := 0
	for i := 0; i < len(out.x[0]); i += 40 {
		if out.x[0][i] != out.x[1][i] && out.x[1][i] != out.x[2][i] {
			differ++
		}
	}
	assert.Greater(t, differ, 50)
}

// tick runs p one sample at a time through Tick and TickClockOff.
func tick(p *Processor, clock []float64) *rendered {
	n := len(clock)
	r := &rendered{}
	for k := range r.x {
		r.x[k] = make([]float64, n)
		r.t[k] = make([]float64, n)
	}
	for i, c := range clock {
		if c > 0.5 {
			p.Tick()
		} else {
			p.TickClockOff()
		}
		x, gates := p.Outputs()
		for k := range r.x {
			r.x[k][i] = x[k]
			r.t[k][i] = gates[k]
		}
	}
	return r
}

func TestSameSeedSameOutput(t *testing.T) {
	clock := squareClock(3000, 25)
	for _, dejaVu := range []float64{0, 0.5} {
		params := DefaultParams()
		params.DejaVu = dejaVu
		params.Length = 5
		newProcessor := func() *Processor {
			p := NewProcessor(48000, 5)
			p.SetParams(params)
			return p
		}
		want := render(newProcessor(), clock, 64)
		for _, blockSize := range []int{1, 100, len(clock)} {
			got := render(newProcessor(), clock, blockSize)
			assert.Equal(t, want.x, got.x, "deja vu %v, block size %d", dejaVu, blockSize)
			assert.Equal(t, want.t, got.t, "deja vu %v, block size %d", dejaVu, blockSize)
		}
		ticked := tick(newProcessor(), clock)
		assert.Equal(t, want.x, ticked.x, "deja vu %v, ticked", dejaVu)
		assert.Equal(t, want.t, ticked.t, "deja vu %v, ticked", dejaVu)
	}
}

func TestNarrowRangeHasSmallerExcursion(t *testing.T) {
	excursion := func(r VoltageRange) float64 {
		p := NewProcessor(48000, 21)
		p.SetVoltageRange(int(r))
		p.SetSpread(1)
		out := render(p, squareClock(40*60, 40), 64)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, x := range out.x[1] {
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
		return hi - lo
	}
	narrow := excursion(VoltageRangeNarrow)
	full := excursion(VoltageRangeFull)
	assert.LessOrEqual(t, narrow, math.Sqrt2-math.Sqrt(0.5)+1e-9)
	assert.Greater(t, full, narrow)
}

func TestControlModeAmounts(t *testing.T) {
	bump := make([]float64, 3)
	tilt := make([]float64, 3)
	for i := range bump {
		bump[i] = ControlModeBump.Amount(i, 3)
		tilt[i] = ControlModeTilt.Amount(i, 3)
		assert.Equal(t, 1.0, ControlModeIdentical.Amount(i, 3))
	}
	assert.Equal(t, []float64{-1, 1, -1}, bump)
	assert.Equal(t, []float64{-1, 0, 1}, tilt)
}

func TestBumpMirrorsOuterChannels(t *testing.T) {
	p := DefaultParams()
	p.ControlMode = ControlModeBump
	p.Spread = 0.9
	p.Bias = 0.2
	outer := p.channel(0, 3)
	middle := p.channel(1, 3)
	assert.InDelta(t, 0.9, middle.spread, 1e-12)
	assert.InDelta(t, 0.1, outer.spread, 1e-12)
	assert.InDelta(t, 0.8, outer.bias, 1e-12)
	assert.Equal(t, outer, p.channel(2, 3))
}

func TestProcessDoesNotAllocate(t *testing.T) {
	p := NewProcessor(48000, 1)
	clock := squareClock(256, 32)
	out := make([][]float64, 6)
	for i := range out {
		out[i] = make([]float64, 256)
	}
	p.Process(clock, out[0], out[1], out[2], out[3], out[4], out[5], 0, 256)
	allocs := testing.AllocsPerRun(50, func() {
		p.Process(clock, out[0], out[1], out[2], out[3], out[4], out[5], 0, 256)
	})
	assert.Zero(t, allocs)
}

func BenchmarkProcess(b *testing.B) {
	p := NewProcessor(48000, 1)
	clock := squareClock(512, 64)
	out := make([][]float64, 6)
	for i := range out {
		out[i] = make([]float64, 512)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Process(clock, out[0], out[1], out[2], out[3], out[4], out[5], 0, 512)
	}
}
