package flux

import (
	"math"
	"math/rand/v2"
)

// ----- Random Source ----- //

// randomSource hands out uniform draws in [0, 1). Every sequence owns one, so
// no generator state is shared between channels.
type randomSource struct {
	rng *rand.Rand
}

func newRandomSource(seed uint64, stream uint64) *randomSource {
	return &randomSource{rng: rand.New(rand.NewPCG(seed, prf(stream)))}
}

func (r *randomSource) float() float64 {
	return r.rng.Float64()
}

// prf is the splitmix64 finalizer. Equal inputs give equal outputs and
// neighbouring inputs give unrelated outputs.
func prf(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// unit maps the top 53 bits of x into [0, 1).
func unit(x uint64) float64 {
	return float64(x>>11) / (1 << 53)
}

func hashValue(value float64, hash uint32, position int) float64 {
	key := math.Float64bits(value) ^ uint64(hash) ^ uint64(position)<<32
	return unit(prf(key ^ prf(uint64(hash))))
}
