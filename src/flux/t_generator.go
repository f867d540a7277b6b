package flux

import "math"

const (
	numSlaves     = 2
	numGates      = 2
	baseFrequency = 2.0 // Hz, internal clock at rate 0.5 and medium range
	clockTimeout  = 2.0 // seconds without a rising edge before the internal clock takes over
)

// clock multipliers selected by rate when an external clock is present
var externalRatios = [...]Ratio{
	{1, 8}, {1, 6}, {1, 4}, {1, 3}, {1, 2},
	{1, 1},
	{2, 1}, {3, 1}, {4, 1}, {6, 1}, {8, 1},
}

// ----- Ramps ----- //

// Ramps holds the phase ramps produced by the T section for one block.
type Ramps struct {
	Master []float64
	Slave  [numSlaves][]float64
}

func (r *Ramps) grow(size int) {
	if cap(r.Master) < size {
		r.Master = make([]float64, size)
		for i := range r.Slave {
			r.Slave[i] = make([]float64, size)
		}
	}
	r.Master = r.Master[:size]
	for i := range r.Slave {
		r.Slave[i] = r.Slave[i][:size]
	}
}

// ----- T Generator ----- //

type slaveRamp struct {
	stepsSinceFire int
	span           int
}

type tGenerator struct {
	sampleRate float64

	model        Model
	rng          Range
	rate         float64
	bias         float64
	jitter       float64
	pulseMean    float64
	pulseStd     float64
	internalFreq float64 // cycles per sample before jitter

	extractor *rampExtractor
	divider   *rampDivider
	external  bool
	sinceEdge int
	timeout   int

	internalPhase  float64
	previousMaster float64

	gateSequence   *RandomSequence
	jitterSequence *RandomSequence
	pulseSequence  *RandomSequence
	modelState     modelState
	// model state before each gate slot was drawn, restored when the slot
	// repeats so stateful models loop with the sequence
	modelHistory [DejaVuBufferSize]modelState

	fired      [numGates]bool
	pulseWidth float64
	warp       float64
	slaves     [numSlaves]slaveRamp
}

func newTGenerator(sampleRate float64, seed uint64) *tGenerator {
	g := &tGenerator{
		sampleRate:     sampleRate,
		extractor:      newRampExtractor(sampleRate),
		divider:        newRampDivider(),
		timeout:        int(clockTimeout * sampleRate),
		gateSequence:   NewRandomSequence(seed, 0x7467),
		jitterSequence: NewRandomSequence(seed, 0x746a),
		pulseSequence:  NewRandomSequence(seed, 0x7470),
	}
	g.reset()
	return g
}

func (g *tGenerator) sequences() [3]*RandomSequence {
	return [3]*RandomSequence{g.gateSequence, g.jitterSequence, g.pulseSequence}
}

func (g *tGenerator) reset() {
	g.extractor.reset()
	g.divider.reset()
	g.external = false
	g.sinceEdge = g.timeout
	g.internalPhase = 0
	g.previousMaster = 1
	g.modelState.reset()
	g.modelHistory = [DejaVuBufferSize]modelState{}
	g.fired = [numGates]bool{}
	g.pulseWidth = 0.5
	g.warp = 1
	for i := range g.slaves {
		g.slaves[i] = slaveRamp{span: 1}
	}
	for _, s := range g.sequences() {
		s.Reset()
	}
}

// applyParams is cheap and runs once per block.
func (g *tGenerator) applyParams(p *Params) {
	g.model = p.TModel
	g.rng = p.TRange
	g.rate = p.Rate
	g.bias = p.GateProbability
	g.jitter = p.Jitter
	g.pulseMean = p.PulseWidth
	g.pulseStd = p.PulseWidthStd
	g.internalFreq = baseFrequency * g.rng.factor() * math.Exp2((g.rate-0.5)*8) / g.sampleRate
	g.divider.setRatio(rateToRatio(g.rate))
	for _, s := range g.sequences() {
		s.SetDejaVu(p.DejaVu)
		s.SetLength(p.Length)
	}
}

func rateToRatio(rate float64) Ratio {
	i := int(math.Round(clamp01(rate) * float64(len(externalRatios)-1)))
	return externalRatios[i]
}

// process fills ramps and gates (interleaved, numGates per sample) for
// len(flags) samples.
func (g *tGenerator) process(flags []GateFlags, ramps *Ramps, gates []bool) {
	for i, f := range flags {
		if f.Rising() {
			g.sinceEdge = 0
			g.external = true
		} else if g.sinceEdge < g.timeout {
			g.sinceEdge++
		} else if g.external {
			g.external = false
			g.internalPhase = g.previousMaster
		}

		source := g.extractor.process(f)
		var master float64
		if g.external {
			master = g.divider.process(source)
		} else {
			g.internalPhase += g.internalFreq / g.warp
			if g.internalPhase >= 1 {
				g.internalPhase -= math.Floor(g.internalPhase)
			}
			master = g.internalPhase
		}

		if master < g.previousMaster {
			g.step()
		}
		g.previousMaster = master

		if g.external && g.warp != 1 {
			master = math.Pow(master, g.warp)
		}
		ramps.Master[i] = master
		for k := range g.slaves {
			s := &g.slaves[k]
			ramps.Slave[k][i] = math.Min((float64(s.stepsSinceFire)+master)/float64(s.span), maxPhase)
		}
		for k := 0; k < numGates; k++ {
			gates[i*numGates+k] = g.fired[k] && master < g.pulseWidth
		}
	}
}

// step draws the random values of a new master step and decides its gates.
func (g *tGenerator) step() {
	slot := g.gateSequence.cursor
	u := g.gateSequence.Next()
	if g.gateSequence.repeated {
		g.modelState = g.modelHistory[slot]
	} else {
		g.modelHistory[slot] = g.modelState
	}
	j := g.jitterSequence.Next()
	w := g.pulseSequence.Next()

	t1, t3 := gateModels[g.model].fire(&g.modelState, u, g.bias)
	g.fired = [numGates]bool{t1, t3}
	g.pulseWidth = clamp(g.pulseMean+g.pulseStd*(2*w-1), 0.01, 0.99)
	g.warp = math.Exp2(g.jitter * (j - 0.5) * 2)

	for k := range g.slaves {
		s := &g.slaves[k]
		s.stepsSinceFire++
		if g.fired[k] {
			s.span = s.stepsSinceFire
			s.stepsSinceFire = 0
		}
	}
}
