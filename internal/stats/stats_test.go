package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 300.0, Mean([]float64{300}))
	assert.Equal(t, 450.0, Mean([]float64{300, 400, 500, 600}))
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil, 0))
	assert.Equal(t, 0.0, StdDev([]float64{42}, 42))

	// Sample SD of {2,4,4,4,5,5,7,9} around mean 5 is sqrt(32/7).
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(data, Mean(data)), 1e-12)
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{300, 400, 500, 600}

	// rank = 0.5*3 = 1.5 -> halfway between 400 and 500
	assert.InDelta(t, 450.0, Percentile(sorted, 0.5), 1e-12)
	// rank = 0.1*3 = 0.3 -> 300 + 0.3*(400-300)
	assert.InDelta(t, 330.0, Percentile(sorted, 0.10), 1e-12)
	// rank = 0.9*3 = 2.7 -> 500 + 0.7*(600-500)
	assert.InDelta(t, 570.0, Percentile(sorted, 0.90), 1e-12)

	assert.Equal(t, 0.0, Percentile(nil, 0.5))
	assert.Equal(t, 123.0, Percentile([]float64{123}, 0.9))
	assert.Equal(t, 300.0, Percentile(sorted, -0.5))
	assert.Equal(t, 600.0, Percentile(sorted, 1.5))
}

func TestSlope(t *testing.T) {
	// Perfect line y = 10x + 2.
	xs := []float64{0, 1, 2, 3}
	ys := []float64{2, 12, 22, 32}
	assert.InDelta(t, 10.0, Slope(xs, ys), 1e-12)

	// Degenerate inputs.
	assert.Equal(t, 0.0, Slope(nil, nil))
	assert.Equal(t, 0.0, Slope([]float64{1}, []float64{2}))
	assert.Equal(t, 0.0, Slope([]float64{1, 2}, []float64{3}))
	// Identical xs -> zero denominator.
	assert.Equal(t, 0.0, Slope([]float64{2, 2, 2}, []float64{1, 2, 3}))
}

func TestInverseNormalCDF(t *testing.T) {
	assert.True(t, math.IsInf(InverseNormalCDF(0), -1))
	assert.True(t, math.IsInf(InverseNormalCDF(1), 1))

	// Symmetry and known quantiles, within the documented 4.5e-4 bound.
	assert.InDelta(t, 0.0, InverseNormalCDF(0.5), 1e-9)
	assert.InDelta(t, 1.6448536, InverseNormalCDF(0.95), 4.5e-4)
	assert.InDelta(t, -1.6448536, InverseNormalCDF(0.05), 4.5e-4)
	assert.InDelta(t, 2.3263479, InverseNormalCDF(0.99), 4.5e-4)

	// Tail regions (p below/above the 0.02425 split).
	assert.InDelta(t, -2.5758293, InverseNormalCDF(0.005), 4.5e-4)
	assert.InDelta(t, 2.5758293, InverseNormalCDF(0.995), 4.5e-4)

	// Monotone across the region boundaries.
	prev := math.Inf(-1)
	for _, p := range []float64{1e-6, 0.001, 0.02, 0.02425, 0.03, 0.5, 0.97, 0.97575, 0.98, 0.999, 1 - 1e-6} {
		z := InverseNormalCDF(p)
		assert.True(t, z > prev, "expected monotone increase at p=%v", p)
		prev = z
	}
}
