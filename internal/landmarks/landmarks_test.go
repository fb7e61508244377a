package landmarks

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsOrder(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, Values)
	assert.Equal(t, []string{"Wrist_x", "Wrist_y", "Wrist_z"}, cols[:3])
	assert.Equal(t, "Thumb_CMC_x", cols[3])
	assert.Equal(t, "Index_MCP_x", cols[15])
	assert.Equal(t, "Pinky_Tip_z", cols[Values-1])
}

func TestFormatFixedVector(t *testing.T) {
	values := make([]float64, Values)
	for i := range values {
		values[i] = float64(i) / 10.0
	}
	got := Format(values)

	parts := strings.Split(got, ", ")
	require.Len(t, parts, Values)
	assert.True(t, strings.HasPrefix(got, "0.0000, 0.1000, 0.2000, 0.3000"))
	assert.True(t, strings.HasSuffix(got, "6.1000, 6.2000"))
	assert.NotContains(t, got, ",,")
}

func TestFormatNegativeAndRounding(t *testing.T) {
	assert.Equal(t, "-0.1235, 1.0000, 0.0000", Format([]float64{-0.123456, 0.99999, 0}))
}

func TestFormatParseRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		values := make([]float64, Values)
		for i := range values {
			values[i] = (rng.Float64() - 0.5) * 4
		}
		parsed, err := Parse(Format(values))
		require.NoError(t, err)
		require.Len(t, parsed, Values)
		for i := range values {
			assert.LessOrEqual(t, math.Abs(parsed[i]-values[i]), 0.00005, "value %d", i)
		}
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
	_, err = Parse("1.0, nope")
	assert.Error(t, err)
}

func TestFrameFrom(t *testing.T) {
	_, err := FrameFrom(make([]float64, 10))
	assert.Error(t, err)

	values := make([]float64, Values)
	values[3], values[4], values[5] = 1, 2, 3
	f, err := FrameFrom(values)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, f.Joint(1))
}
