package flux

import "math"

// ----- Scale Table ----- //

// ScaleTable is one musical scale as semitone offsets from the root, in
// ascending order within one octave.
type ScaleTable struct {
	Name    string
	Degrees []int
}

var scales = [...]ScaleTable{
	{Name: "chromatic", Degrees: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	{Name: "major", Degrees: []int{0, 2, 4, 5, 7, 9, 11}},
	{Name: "minor", Degrees: []int{0, 2, 3, 5, 7, 8, 10}},
	{Name: "pentatonic", Degrees: []int{0, 2, 4, 7, 9}},
	{Name: "phrygian", Degrees: []int{0, 1, 3, 5, 7, 8, 10}},
	{Name: "whole_tone", Degrees: []int{0, 2, 4, 6, 8, 10}},
}

// ScaleCount is the number of available scales.
const ScaleCount = len(scales)

// Scale returns the table at index i, coerced into range.
func Scale(i int) *ScaleTable {
	return &scales[clampInt(i, 0, ScaleCount-1)]
}

// ScaleIndexFromString returns the index of the scale with the given name.
func ScaleIndexFromString(s string) (int, bool) {
	for i := range scales {
		if scales[i].Name == s {
			return i, true
		}
	}
	return 0, false
}

// Quantize snaps a pitch in semitones to the nearest note of the scale.
// Ties go to the lower note.
func (t *ScaleTable) Quantize(semitones float64) float64 {
	octave := math.Floor(semitones / 12)
	within := semitones - octave*12
	best := 0.0
	bestDistance := math.Inf(1)
	for _, d := range t.Degrees {
		if dist := math.Abs(within - float64(d)); dist < bestDistance {
			best, bestDistance = float64(d), dist
		}
	}
	if math.Abs(within-12) < bestDistance {
		best = 12
	}
	return octave*12 + best
}

// ----- Scale Offset ----- //

// ScaleOffset pairs a scale with the number of octaves the output spans.
type ScaleOffset struct {
	Scale   int
	Octaves int
}

// Span returns the width of the output in semitones.
func (o ScaleOffset) Span() float64 {
	return float64(12 * o.Octaves)
}

// ----- Voltage Range ----- //

// VoltageRange selects how many octaves the X outputs span.
type VoltageRange int

const (
	VoltageRangeNarrow VoltageRange = iota
	VoltageRangeWide
	VoltageRangeFull

	VoltageRangeCount = int(VoltageRangeFull) + 1
)

var voltageRangeNames = [VoltageRangeCount]string{"narrow", "wide", "full"}

func (r VoltageRange) String() string {
	if r < 0 || int(r) >= VoltageRangeCount {
		return "unknown"
	}
	return voltageRangeNames[r]
}

// Octaves returns the octave span of the range: 1, 2 or 3.
func (r VoltageRange) Octaves() int {
	return clampInt(int(r), 0, VoltageRangeCount-1) + 1
}

// VoltageRangeFromIndex coerces any index into a valid VoltageRange.
func VoltageRangeFromIndex(i int) VoltageRange {
	return VoltageRange(clampInt(i, 0, VoltageRangeCount-1))
}
