// Package stats holds the numeric helpers shared by the task metrics
// calculators. Everything here is a pure function over float64 slices.
package stats

import "math"

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// StdDev returns the sample standard deviation (n-1 denominator) around the
// supplied mean, or 0 when fewer than two values are present.
func StdDev(data []float64, mean float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range data {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Percentile interpolates the value at fraction pct in [0,1] of an already
// sorted slice: rank = pct*(n-1), linear interpolation between the floor and
// ceil ranked values. Empty input yields 0, a single value is returned as is.
func Percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	if pct < 0 {
		pct = 0
	} else if pct > 1 {
		pct = 1
	}

	rank := pct * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

// Slope returns the ordinary least-squares slope of ys against xs, or 0 when
// fewer than two paired points are available or the xs are degenerate.
func Slope(xs, ys []float64) float64 {
	if len(xs) < 2 || len(ys) < 2 || len(xs) != len(ys) {
		return 0
	}

	n := float64(len(xs))
	var sumX, sumY, sumXY, sumX2 float64
	for i, x := range xs {
		y := ys[i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if math.Abs(denom) < math.SmallestNonzeroFloat64 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Acklam's rational approximation coefficients for the inverse CDF of the
// standard normal distribution.
var (
	acklamA = [6]float64{
		-3.969683028665376e1,
		2.209460984245205e2,
		-2.759285104469687e2,
		1.38357751867269e2,
		-3.066479806614716e1,
		2.506628277459239,
	}
	acklamB = [5]float64{
		-5.447609879822406e1,
		1.615858368580409e2,
		-1.556989798598866e2,
		6.680131188771972e1,
		-1.328068155288572e1,
	}
	acklamC = [6]float64{
		-7.784894002430293e-3,
		-3.223964580411365e-1,
		-2.400758277161838,
		-2.549732539343734,
		4.374664141464968,
		2.938163982698783,
	}
	acklamD = [4]float64{
		7.784695709041462e-3,
		3.224671290700398e-1,
		2.445134137142996,
		3.754408661907416,
	}
)

const (
	acklamPLow  = 0.02425
	acklamPHigh = 1.0 - acklamPLow
)

// InverseNormalCDF computes the quantile function of the standard normal
// distribution using Acklam's three-region rational approximation. Maximum
// error is about 4.5e-4 across (0, 1). p <= 0 yields -Inf, p >= 1 yields +Inf.
func InverseNormalCDF(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	if p < acklamPLow {
		q := math.Sqrt(-2 * math.Log(p))
		return (((((acklamC[0]*q+acklamC[1])*q+acklamC[2])*q+acklamC[3])*q+acklamC[4])*q + acklamC[5]) /
			((((acklamD[0]*q+acklamD[1])*q+acklamD[2])*q+acklamD[3])*q + 1)
	}

	if p > acklamPHigh {
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((acklamC[0]*q+acklamC[1])*q+acklamC[2])*q+acklamC[3])*q+acklamC[4])*q + acklamC[5]) /
			((((acklamD[0]*q+acklamD[1])*q+acklamD[2])*q+acklamD[3])*q + 1)
	}

	q := p - 0.5
	r := q * q
	return (((((acklamA[0]*r+acklamA[1])*r+acklamA[2])*r+acklamA[3])*r+acklamA[4])*r + acklamA[5]) * q /
		(((((acklamB[0]*r+acklamB[1])*r+acklamB[2])*r+acklamB[3])*r+acklamB[4])*r + 1)
}
