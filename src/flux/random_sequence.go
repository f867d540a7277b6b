package flux

// ----- Random Sequence ----- //

// DejaVuBufferSize is the capacity of every RandomSequence loop.
const DejaVuBufferSize = 16

type sequenceMode int

const (
	modeRecord sequenceMode = iota
	modeReplay
)

// RandomSequence is a looping memory of random values. In record mode it
// produces fresh draws or, with probability dejaVu, repeats the value emitted
// length steps ago. In replay mode it derives its values from the loop of a
// canonical sequence without touching it.
type RandomSequence struct {
	source  *randomSource
	loop    [DejaVuBufferSize]float64
	written [DejaVuBufferSize]bool
	cursor  int
	length  int
	dejaVu  float64
	// repeated reports whether the last record step re-emitted its slot
	repeated bool

	mode      sequenceMode
	canonical *RandomSequence
	hash      uint32
}

// NewRandomSequence returns an empty sequence in record mode.
func NewRandomSequence(seed uint64, stream uint64) *RandomSequence {
	return &RandomSequence{
		source: newRandomSource(seed, stream),
		length: DejaVuBufferSize,
	}
}

// Record switches the sequence to generation mode.
func (s *RandomSequence) Record() {
	s.mode = modeRecord
	s.canonical = nil
}

// ReplayPseudoRandom makes the sequence a hashed image of canonical. Distinct
// hashes give distinct streams from the same canonical loop.
func (s *RandomSequence) ReplayPseudoRandom(canonical *RandomSequence, hash uint32) {
	if canonical == s {
		s.Record()
		return
	}
	s.mode = modeReplay
	s.canonical = canonical
	s.hash = hash
}

func (s *RandomSequence) SetDejaVu(p float64) {
	s.dejaVu = clamp01(p)
}

func (s *RandomSequence) DejaVu() float64 { return s.dejaVu }

func (s *RandomSequence) SetLength(n int) {
	s.length = clampInt(n, 1, DejaVuBufferSize)
	if s.cursor >= s.length {
		s.cursor %= s.length
	}
}

func (s *RandomSequence) Length() int { return s.length }

// Next advances the sequence by one step and returns the value of that step.
func (s *RandomSequence) Next() float64 {
	if s.mode == modeReplay && s.canonical != nil {
		return s.replay()
	}
	return s.record()
}

func (s *RandomSequence) record() float64 {
	// the coin is drawn every step so the stream stays aligned whatever dejaVu is
	coin := s.source.float()
	fresh := s.source.float()
	value := fresh
	s.repeated = s.written[s.cursor] && coin < s.dejaVu
	if s.repeated {
		value = s.loop[s.cursor]
	}
	s.loop[s.cursor] = value
	s.written[s.cursor] = true
	s.advance(s.length)
	return value
}

func (s *RandomSequence) replay() float64 {
	c := s.canonical
	position := s.cursor % c.length
	value := hashValue(c.loop[position], s.hash, position)
	s.cursor = position
	s.advance(c.length)
	return value
}

func (s *RandomSequence) advance(length int) {
	s.cursor++
	if s.cursor >= length {
		s.cursor = 0
	}
}

// Reset empties the loop. The next record step draws a fresh value.
func (s *RandomSequence) Reset() {
	s.loop = [DejaVuBufferSize]float64{}
	s.written = [DejaVuBufferSize]bool{}
	s.cursor = 0
	s.repeated = false
}
