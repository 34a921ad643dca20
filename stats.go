package argus

import (
	"math"
	"sort"
)

// Describe computes descriptive statistics for a non-empty value sequence.
// StdDev uses the population formula (divide by N) so it stays consistent
// with the anomaly detector's z-score threshold calibration.
func Describe(values []float64) (Statistics, error) {
	if len(values) == 0 {
		return Statistics{}, newAnalysisError("describe", "", "empty series", ErrInsufficientData)
	}

	q1, median, q3 := Quartiles(values)
	return Statistics{
		Mean:   Mean(values),
		StdDev: StdDev(values),
		Median: median,
		Q1:     q1,
		Q3:     q3,
	}, nil
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// Quartiles returns Q1, the median and Q3 of values using linear
// interpolation between ranks.
func Quartiles(values []float64) (q1, median, q3 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return percentile(sorted, 0.25), percentile(sorted, 0.5), percentile(sorted, 0.75)
}

// percentile interpolates the p-th percentile (p in [0,1]) of sorted values.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// PearsonCorrelation computes the Pearson correlation coefficient between two
// equal-length, same-index-aligned series. It returns ErrInvalidInput for a
// length mismatch, an empty input, or a zero-variance series; callers must
// treat that as "no correlation computable", not as 0.
func PearsonCorrelation(a, b []float64) (float64, error) {
	n := len(a)
	if n == 0 || len(b) != n {
		return 0, newAnalysisError("correlation", "",
			"series must be non-empty and equal length", ErrInvalidInput)
	}

	var sumA, sumB, sumAB, sumA2, sumB2 float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumA2 += a[i] * a[i]
		sumB2 += b[i] * b[i]
	}

	nf := float64(n)
	varA := nf*sumA2 - sumA*sumA
	varB := nf*sumB2 - sumB*sumB
	if varA <= 0 || varB <= 0 {
		return 0, newAnalysisError("correlation", "",
			"zero variance in input series", ErrInvalidInput)
	}

	return (nf*sumAB - sumA*sumB) / math.Sqrt(varA*varB), nil
}

// LinearRegression fits an ordinary least-squares line y = slope*x + intercept.
// It returns ErrInvalidInput when the inputs are misaligned or the x-axis has
// zero variance.
func LinearRegression(xs, ys []float64) (slope, intercept float64, err error) {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0, 0, newAnalysisError("linear_regression", "",
			"need at least 2 aligned points", ErrInvalidInput)
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
	}

	nf := float64(n)
	denom := nf*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0, newAnalysisError("linear_regression", "",
			"zero variance on x-axis", ErrInvalidInput)
	}

	slope = (nf*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / nf
	return slope, intercept, nil
}

// MeanAbsoluteError returns the mean of absolute residuals between actual and
// predicted values. It is the forecast accuracy proxy.
func MeanAbsoluteError(actual, predicted []float64) (float64, error) {
	n := len(actual)
	if n == 0 || len(predicted) != n {
		return 0, newAnalysisError("mean_absolute_error", "",
			"series must be non-empty and equal length", ErrInvalidInput)
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(n), nil
}

// clamp01 clamps v to the [0,1] interval.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
