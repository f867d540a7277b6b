package flux

import "math"

// ----- Model ----- //

// Model selects how the T section decides which gates fire on each step.
type Model int

const (
	// ModelComplementaryBernoulli fires T1 when a coin falls below bias,
	// T3 otherwise.
	ModelComplementaryBernoulli Model = iota
	// ModelClusters repeats the previous decision with a probability that
	// grows as bias moves away from the center.
	ModelClusters
	// ModelDrums plays fixed kick/hat grids picked by bias, with rare ghost
	// hits on T3.
	ModelDrums
	// ModelIndependentBernoulli tosses one coin per gate.
	ModelIndependentBernoulli
	// ModelDivider fires T1 every n steps and T3 every 9-n steps.
	ModelDivider
	// ModelThreeStates fires T1, T3 or nothing.
	ModelThreeStates
	// ModelMarkov alternates between T1 and T3, switching with probability
	// bias.
	ModelMarkov

	ModelCount = int(ModelMarkov) + 1
)

var modelNames = [ModelCount]string{
	"complementary_bernoulli",
	"clusters",
	"drums",
	"independent_bernoulli",
	"divider",
	"three_states",
	"markov",
}

func (m Model) String() string {
	if m < 0 || int(m) >= ModelCount {
		return "unknown"
	}
	return modelNames[m]
}

// ModelFromIndex coerces any index into a valid Model.
func ModelFromIndex(i int) Model {
	return Model(clampInt(i, 0, ModelCount-1))
}

// ModelFromString returns the model with the given name.
func ModelFromString(s string) (Model, bool) {
	for i, name := range modelNames {
		if name == s {
			return Model(i), true
		}
	}
	return ModelComplementaryBernoulli, false
}

// ----- Model Strategies ----- //

type modelState struct {
	step     int
	previous int // index of the gate that fired last in the alternating models
}

func (s *modelState) reset() {
	s.step = 0
	s.previous = 0
}

type gateModel interface {
	// fire decides the gates of one step. u is the step's value from the
	// gate sequence, so looping the sequence loops the decisions.
	fire(s *modelState, u float64, bias float64) (t1 bool, t3 bool)
}

var gateModels = [ModelCount]gateModel{
	complementaryBernoulli{},
	clusters{},
	drums{},
	independentBernoulli{},
	divider{},
	threeStates{},
	markov{},
}

// secondary derives another uniform value from u.
func secondary(u float64) float64 {
	return unit(prf(math.Float64bits(u)))
}

type complementaryBernoulli struct{}

func (complementaryBernoulli) fire(s *modelState, u float64, bias float64) (bool, bool) {
	t1 := u < bias
	return t1, !t1
}

type clusters struct{}

func (clusters) fire(s *modelState, u float64, bias float64) (bool, bool) {
	stickiness := 0.5 + 0.45*math.Abs(2*bias-1)
	if secondary(u) >= stickiness {
		if u < bias {
			s.previous = 0
		} else {
			s.previous = 1
		}
	}
	return s.previous == 0, s.previous == 1
}

// kick/hat grids, bit i is step i
var drumPatterns = [4][2]uint16{
	{0x1111, 0x4444},
	{0x0909, 0x5555},
	{0x2491, 0xaaaa},
	{0x9249, 0xffff},
}

type drums struct{}

func (drums) fire(s *modelState, u float64, bias float64) (bool, bool) {
	pattern := drumPatterns[clampInt(int(bias*4), 0, len(drumPatterns)-1)]
	step := s.step % 16
	s.step = (s.step + 1) % 16
	t1 := pattern[0]&(1<<step) != 0
	t3 := pattern[1]&(1<<step) != 0
	if !t1 && !t3 && u > 0.9 {
		t3 = true
	}
	return t1, t3
}

type independentBernoulli struct{}

func (independentBernoulli) fire(s *modelState, u float64, bias float64) (bool, bool) {
	return u < bias, secondary(u) < bias
}

type divider struct{}

func (divider) fire(s *modelState, u float64, bias float64) (bool, bool) {
	n := 1 + clampInt(int(bias*8), 0, 7)
	step := s.step
	s.step = (s.step + 1) % 840 // divisible by 1..8
	return step%n == 0, step%(9-n) == 0
}

type threeStates struct{}

func (threeStates) fire(s *modelState, u float64, bias float64) (bool, bool) {
	p1 := bias * 2 / 3
	p3 := (1 - bias) * 2 / 3
	return u < p1, u >= p1 && u < p1+p3
}

type markov struct{}

func (markov) fire(s *modelState, u float64, bias float64) (bool, bool) {
	if u < bias {
		s.previous = 1 - s.previous
	}
	return s.previous == 0, s.previous == 1
}

// ----- Range ----- //

// Range scales the internal clock.
type Range int

const (
	RangeSlow Range = iota
	RangeMedium
	RangeFast

	RangeCount = int(RangeFast) + 1
)

var rangeFactors = [RangeCount]float64{0.25, 1, 4}
var rangeNames = [RangeCount]string{"slow", "medium", "fast"}

func (r Range) String() string {
	if r < 0 || int(r) >= RangeCount {
		return "unknown"
	}
	return rangeNames[r]
}

func (r Range) factor() float64 {
	return rangeFactors[clampInt(int(r), 0, RangeCount-1)]
}

// RangeFromIndex coerces any index into a valid Range.
func RangeFromIndex(i int) Range {
	return Range(clampInt(i, 0, RangeCount-1))
}
