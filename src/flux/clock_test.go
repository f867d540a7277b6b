package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractGateFlags(t *testing.T) {
	cases := []struct {
		previous GateFlags
		high     bool
		expected GateFlags
	}{
		{GateFlagLow, false, GateFlagLow},
		{GateFlagLow, true, GateFlagHigh | GateFlagRising},
		{GateFlagHigh | GateFlagRising, true, GateFlagHigh},
		{GateFlagHigh, true, GateFlagHigh},
		{GateFlagHigh, false, GateFlagFalling},
		{GateFlagFalling, false, GateFlagLow},
		{GateFlagFalling, true, GateFlagHigh | GateFlagRising},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, ExtractGateFlags(c.previous, c.high), "previous=%v high=%v", c.previous, c.high)
	}
}

func TestClockEdgeDetectorThreshold(t *testing.T) {
	d := clockEdgeDetector{}
	assert.Equal(t, GateFlagLow, d.process(0.1))
	f := d.process(0.11)
	assert.True(t, f.Rising())
	assert.True(t, f.High())
	f = d.process(5)
	assert.False(t, f.Rising())
	assert.True(t, f.High())
	f = d.process(-1)
	assert.True(t, f.Falling())
	assert.False(t, f.High())
}
