package flux

import "math"

const (
	numChannels = 3
	// MaxOctaves bounds the exponential conversion so X never exceeds 2^4 - 1.
	MaxOctaves = 4.0
	// MinOctaves bounds the conversion from below so X never falls under 2^-1 - 1.
	MinOctaves = -1.0
	// DefaultVoltage is the cached X value after construction and Reset.
	DefaultVoltage = 0.5
)

// hashes of the replayed channels, applied against channel 0's loop
var replayHashes = [numChannels]uint32{0, 0xbeca55e5, 0xf0cacc1a}

// ramp routing: channel 0 <- slave 0, channel 1 <- master, channel 2 <- slave 1
const (
	rampSlave0 = iota
	rampMaster
	rampSlave1
)

var channelRamps = [numChannels]int{rampSlave0, rampMaster, rampSlave1}

// ----- Processor ----- //

// Processor turns a clock into three quantized random voltages (X1..X3) and
// three gates (T1..T3).
//
// Process and the Tick functions must be called from one goroutine. Setters
// may be called from any goroutine; their values are picked up at the start
// of the next block.
type Processor struct {
	sampleRate float64
	params     paramStore

	detector  clockEdgeDetector
	generator *tGenerator
	sequences [numChannels]*RandomSequence
	channels  [numChannels]*outputChannel

	// scratch, grown to the largest block seen
	capacity int
	flags    []GateFlags
	ramps    Ramps
	gates    []bool
	voltages []float64

	x [numChannels]float64
	t [numChannels]float64

	tickClock []float64
	tickOut   [2 * numChannels][]float64
}

// NewProcessor returns an engine running at sampleRate. Engines built with the
// same seed produce the same output for the same input.
func NewProcessor(sampleRate float64, seed uint64) *Processor {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		sampleRate = 48000
	}
	p := &Processor{
		sampleRate: sampleRate,
		generator:  newTGenerator(sampleRate, seed),
		tickClock:  make([]float64, 1),
	}
	p.params.init(DefaultParams())
	for i := range p.sequences {
		p.sequences[i] = NewRandomSequence(seed, uint64(i))
		p.channels[i] = newOutputChannel(p.sequences[i])
	}
	for i := range p.tickOut {
		p.tickOut[i] = make([]float64, 1)
	}
	p.Reset()
	return p
}

func (p *Processor) SampleRate() float64 { return p.sampleRate }

func (p *Processor) grow(size int) {
	if size <= p.capacity {
		p.flags = p.flags[:size]
		p.gates = p.gates[:size*numGates]
		p.voltages = p.voltages[:size*numChannels]
		p.ramps.grow(size)
		return
	}
	p.capacity = size
	p.flags = make([]GateFlags, size)
	p.gates = make([]bool, size*numGates)
	p.voltages = make([]float64, size*numChannels)
	p.ramps.grow(size)
}

func (p *Processor) ramp(i int) []float64 {
	switch channelRamps[i] {
	case rampSlave0:
		return p.ramps.Slave[0]
	case rampSlave1:
		return p.ramps.Slave[1]
	default:
		return p.ramps.Master
	}
}

// Process renders size samples. clockIn[start:start+size] is read and the
// same range of every output is written. X outputs are frequency ratios
// 2^v - 1 and T outputs are 0 or 1. size is reduced to what every buffer can
// hold.
func (p *Processor) Process(clockIn, outX1, outX2, outX3, outT1, outT2, outT3 []float64, start, size int) {
	if start < 0 {
		return
	}
	for _, buf := range [...][]float64{clockIn, outX1, outX2, outX3, outT1, outT2, outT3} {
		size = min(size, len(buf)-start)
	}
	if size <= 0 {
		return
	}
	p.grow(size)
	params := p.params.load()

	for i := 0; i < size; i++ {
		p.flags[i] = p.detector.process(clockIn[start+i])
	}

	p.generator.applyParams(params)
	p.generator.process(p.flags, &p.ramps, p.gates)

	canonical := p.sequences[0]
	canonical.SetDejaVu(params.DejaVu)
	canonical.SetLength(params.Length)
	canonical.Record()
	for i := 1; i < numChannels; i++ {
		p.sequences[i].ReplayPseudoRandom(canonical, replayHashes[i])
	}

	// channels advance together sample by sample so a replayed step sees
	// the canonical loop exactly as it stands at that sample
	var cps [numChannels]channelParams
	var ramps [numChannels][]float64
	for ch := range p.channels {
		cps[ch] = params.channel(ch, numChannels)
		ramps[ch] = p.ramp(ch)
	}
	for i := 0; i < size; i++ {
		for ch, c := range p.channels {
			p.voltages[i*numChannels+ch] = c.next(&cps[ch], ramps[ch][i])
		}
	}

	xs := [numChannels][]float64{outX1, outX2, outX3}
	for ch, out := range xs {
		for i := 0; i < size; i++ {
			out[start+i] = voltageToRatio(p.voltages[i*numChannels+ch], params.Mix)
		}
	}

	for i := 0; i < size; i++ {
		outT1[start+i] = gateLevel(p.gates[i*numGates])
		outT2[start+i] = gateLevel(p.ramps.Master[i] < params.PulseWidth)
		outT3[start+i] = gateLevel(p.gates[i*numGates+1])
	}

	last := start + size - 1
	p.x = [numChannels]float64{outX1[last], outX2[last], outX3[last]}
	p.t = [numChannels]float64{outT1[last], outT2[last], outT3[last]}
}

// voltageToRatio converts a voltage in octaves into a frequency ratio CV.
// The exponent is clamped so modulation can never run away.
func voltageToRatio(v float64, mix float64) float64 {
	return math.Exp2(clamp(v*mix, MinOctaves, MaxOctaves)) - 1
}

func gateLevel(high bool) float64 {
	if high {
		return 1
	}
	return 0
}

// Tick advances the engine by one sample with the clock held high.
func (p *Processor) Tick() {
	p.tick(1)
}

// TickClockOff advances the engine by one sample with the clock held low.
func (p *Processor) TickClockOff() {
	p.tick(0)
}

func (p *Processor) tick(clock float64) {
	p.tickClock[0] = clock
	o := &p.tickOut
	p.Process(p.tickClock, o[0], o[1], o[2], o[3], o[4], o[5], 0, 1)
}

// Reset clears the random memories and the cached outputs. It must not run
// concurrently with Process.
func (p *Processor) Reset() {
	for _, s := range p.sequences {
		s.Reset()
	}
	for _, c := range p.channels {
		c.reset()
	}
	p.generator.reset()
	p.detector = clockEdgeDetector{}
	for i := range p.x {
		p.x[i] = DefaultVoltage
		p.t[i] = 0
	}
}

// Cached last samples of the most recent block.
func (p *Processor) X1() float64 { return p.x[0] }
func (p *Processor) X2() float64 { return p.x[1] }
func (p *Processor) X3() float64 { return p.x[2] }
func (p *Processor) T1() float64 { return p.t[0] }
func (p *Processor) T2() float64 { return p.t[1] }
func (p *Processor) T3() float64 { return p.t[2] }

// Outputs returns the cached X and T values.
func (p *Processor) Outputs() (x [3]float64, t [3]float64) {
	return p.x, p.t
}
