package argus

import (
	"math"
	"time"
)

// Trend classifies the direction of a fitted series.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// minForecastPoints is the hard minimum history for a forecast.
const minForecastPoints = 7

// ForecastConfig configures the forecaster.
type ForecastConfig struct {
	// Horizon is the number of future days to project.
	Horizon int

	// ConfidenceLevel sets the prediction-interval coverage (default 0.95).
	ConfidenceLevel float64

	// SmoothingWindow is the trailing moving-average window applied before
	// fitting. A window of 1 disables smoothing.
	SmoothingWindow int

	// TrendEpsilonFraction is the slope dead zone as a fraction of the
	// historical mean, so numerical noise is not classified as a trend.
	TrendEpsilonFraction float64
}

// DefaultForecastConfig returns default forecasting configuration.
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Horizon:              7,
		ConfidenceLevel:      0.95,
		SmoothingWindow:      3,
		TrendEpsilonFraction: 0.01,
	}
}

// ForecastPoint is a projected data point with its prediction interval.
type ForecastPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	PredictedValue float64   `json:"predicted_value"`
	LowerBound     float64   `json:"lower_bound"`
	UpperBound     float64   `json:"upper_bound"`
}

// ForecastResult contains the projected points and fit diagnostics.
type ForecastResult struct {
	Points           []ForecastPoint `json:"points"`
	Trend            Trend           `json:"trend"`
	HistoricalMean   float64         `json:"historical_mean"`
	ForecastMean     float64         `json:"forecast_mean"`
	Slope            float64         `json:"slope"`
	AccuracyEstimate float64         `json:"accuracy_estimate"`
}

// Forecaster projects near-term metric values with confidence bounds using
// closed-form statistics: an ordinary least-squares fit over an elapsed-day
// axis with the standard prediction-interval formula. No model training, by
// design, for explainability and zero training-data cost.
type Forecaster struct {
	config ForecastConfig
}

// NewForecaster creates a forecaster, repairing out-of-range config values.
func NewForecaster(config ForecastConfig) *Forecaster {
	if config.Horizon <= 0 {
		config.Horizon = 7
	}
	if config.ConfidenceLevel <= 0 || config.ConfidenceLevel >= 1 {
		config.ConfidenceLevel = 0.95
	}
	if config.SmoothingWindow <= 0 {
		config.SmoothingWindow = 3
	}
	if config.TrendEpsilonFraction <= 0 {
		config.TrendEpsilonFraction = 0.01
	}
	return &Forecaster{config: config}
}

// Forecast fits the series and projects Horizon future daily points. It
// returns ErrInsufficientData for fewer than 7 points.
func (f *Forecaster) Forecast(series MetricSeries) (*ForecastResult, error) {
	n := series.Len()
	if n < minForecastPoints {
		return nil, newAnalysisError("forecast", series.Name,
			"need at least 7 points", ErrInsufficientData)
	}

	values := series.Values()
	smoothed := trailingMovingAverage(values, f.config.SmoothingWindow)

	// Elapsed days from the first observation form the x-axis.
	first := series.Points[0].Timestamp
	xs := make([]float64, n)
	for i, p := range series.Points {
		xs[i] = p.Timestamp.Sub(first).Hours() / 24
	}

	slope, intercept, err := LinearRegression(xs, smoothed)
	if err != nil {
		return nil, err
	}

	fitted := make([]float64, n)
	for i, x := range xs {
		fitted[i] = intercept + slope*x
	}

	histMean := Mean(values)
	mae, err := MeanAbsoluteError(values, fitted)
	if err != nil {
		return nil, err
	}

	// Residual standard error and the x dispersion drive interval width.
	xMean := Mean(xs)
	var rss, sxx float64
	for i := range xs {
		resid := smoothed[i] - fitted[i]
		rss += resid * resid
		dx := xs[i] - xMean
		sxx += dx * dx
	}
	stdErr := math.Sqrt(rss / float64(n-2))
	z := zValue(f.config.ConfidenceLevel)

	lastX := xs[n-1]
	lastTs := series.Last().Timestamp
	points := make([]ForecastPoint, f.config.Horizon)
	forecastSum := 0.0
	for i := 0; i < f.config.Horizon; i++ {
		x := lastX + float64(i+1)
		predicted := intercept + slope*x
		// Standard prediction interval: the margin widens with distance from
		// the observed x mean, so uncertainty compounds with horizon.
		margin := z * stdErr * math.Sqrt(1+1/float64(n)+(x-xMean)*(x-xMean)/sxx)
		points[i] = ForecastPoint{
			Timestamp:      lastTs.AddDate(0, 0, i+1),
			PredictedValue: predicted,
			LowerBound:     predicted - margin,
			UpperBound:     predicted + margin,
		}
		forecastSum += predicted
	}

	accuracy := 0.0
	if histMean != 0 {
		accuracy = clamp01(1 - mae/math.Abs(histMean))
	}

	return &ForecastResult{
		Points:           points,
		Trend:            classifyTrend(slope, histMean, f.config.TrendEpsilonFraction),
		HistoricalMean:   histMean,
		ForecastMean:     forecastSum / float64(f.config.Horizon),
		Slope:            slope,
		AccuracyEstimate: accuracy,
	}, nil
}

// classifyTrend maps a per-day slope to a trend, with a dead zone of
// epsilonFraction of the historical mean.
func classifyTrend(slope, histMean, epsilonFraction float64) Trend {
	eps := epsilonFraction * math.Abs(histMean)
	switch {
	case slope > eps:
		return TrendIncreasing
	case slope < -eps:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// trailingMovingAverage smooths values with a trailing window; leading points
// use as much history as is available.
func trailingMovingAverage(values []float64, window int) []float64 {
	if window <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = Mean(values[start : i+1])
	}
	return out
}

// zValue returns the two-sided normal z-value for common confidence levels.
func zValue(level float64) float64 {
	switch {
	case level >= 0.99:
		return 2.576
	case level >= 0.95:
		return 1.960
	case level >= 0.90:
		return 1.645
	case level >= 0.80:
		return 1.282
	default:
		return 1.960
	}
}
