package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantize(t *testing.T) {
	major := Scale(1)
	assert.Equal(t, "major", major.Name)
	cases := []struct {
		in       float64
		expected float64
	}{
		{0, 0},
		{1, 0},
		{1.2, 2},
		{6, 5},
		{11.6, 12},
		{13, 12},
		{-1, -1},
		{-0.4, 0},
		{23.9, 24},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, major.Quantize(c.in), "in=%v", c.in)
	}
	assert.Equal(t, 3.0, Scale(0).Quantize(3.4))
}

func TestScaleLookup(t *testing.T) {
	assert.Equal(t, "chromatic", Scale(-5).Name)
	assert.Equal(t, "whole_tone", Scale(100).Name)
	i, ok := ScaleIndexFromString("pentatonic")
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	_, ok = ScaleIndexFromString("lydian")
	assert.False(t, ok)
}

func TestVoltageRangeOctaves(t *testing.T) {
	assert.Equal(t, 1, VoltageRangeNarrow.Octaves())
	assert.Equal(t, 2, VoltageRangeWide.Octaves())
	assert.Equal(t, 3, VoltageRangeFull.Octaves())
	assert.Equal(t, VoltageRangeFull, VoltageRangeFromIndex(9))
	assert.Equal(t, "narrow", VoltageRangeNarrow.String())
	assert.Equal(t, "unknown", VoltageRange(-1).String())
}
