package argus

import (
	"fmt"
	"math"
	"time"
)

// AnomalyType classifies which detection test flagged a point.
type AnomalyType string

const (
	AnomalyStatisticalOutlier   AnomalyType = "statistical_outlier"
	AnomalyIQROutlier           AnomalyType = "iqr_outlier"
	AnomalySuddenDrop           AnomalyType = "sudden_drop"
	AnomalySuddenSpike          AnomalyType = "sudden_spike"
	AnomalySustainedDegradation AnomalyType = "sustained_degradation"
)

// Severity is the qualitative magnitude bucket of an anomaly.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparison; higher is more severe.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Anomaly is an immutable record produced by the detector. Acknowledgement
// and resolution state belong to a storage collaborator keyed by ID; they
// never live on this value.
type Anomaly struct {
	ID                  string      `json:"id"`
	MetricName          string      `json:"metric_name"`
	Type                AnomalyType `json:"anomaly_type"`
	Severity            Severity    `json:"severity"`
	Confidence          float64     `json:"confidence"`
	DetectedValue       float64     `json:"detected_value"`
	ExpectedValue       float64     `json:"expected_value"`
	ThresholdValue      float64     `json:"threshold_value"`
	DeviationPercentage float64     `json:"deviation_percentage"`
	DetectedAt          time.Time   `json:"detected_at"`
}

// DetectorConfig configures the anomaly detector.
type DetectorConfig struct {
	// ZScoreThreshold is the number of standard deviations beyond which the
	// most recent point is flagged as a statistical outlier.
	ZScoreThreshold float64

	// IQRMultiplier scales the interquartile range for the Tukey fences.
	IQRMultiplier float64

	// SuddenChangeThresholdPct is the relative change (percent) versus the
	// trailing-window mean beyond which a sudden drop or spike is flagged.
	SuddenChangeThresholdPct float64

	// SuddenWindowSize is the trailing window (points) used as the sudden
	// drop/spike baseline.
	SuddenWindowSize int

	// SustainedWindowSize is the window (points) for each side of the
	// sustained-degradation comparison.
	SustainedWindowSize int

	// SustainedChangeThresholdPct is the difference (percent) between the two
	// sustained windows beyond which a degradation is flagged.
	SustainedChangeThresholdPct float64

	// Direction declares the unfavorable direction for the metric.
	Direction MetricDirection
}

// DefaultDetectorConfig returns default detection thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ZScoreThreshold:             2.0,
		IQRMultiplier:               1.5,
		SuddenChangeThresholdPct:    20,
		SuddenWindowSize:            7,
		SustainedWindowSize:         7,
		SustainedChangeThresholdPct: 10,
		Direction:                   HigherIsBetter,
	}
}

// deviationSentinelPct is reported when the expected value is zero and a
// relative deviation cannot be computed.
const deviationSentinelPct = 1e4

// zeroBaselineConfidenceCap limits confidence when the baseline was zero.
const zeroBaselineConfidenceCap = 0.5

// AnomalyDetector classifies values in a metric series as anomalous using
// four independent tests. Each test yields zero or more records; the same
// point may be flagged by multiple tests and the records are not merged.
// Detection is a pure computation over its input.
type AnomalyDetector struct {
	config DetectorConfig
}

// NewAnomalyDetector creates a detector, repairing out-of-range config values.
func NewAnomalyDetector(config DetectorConfig) *AnomalyDetector {
	if config.ZScoreThreshold <= 0 {
		config.ZScoreThreshold = 2.0
	}
	if config.IQRMultiplier <= 0 {
		config.IQRMultiplier = 1.5
	}
	if config.SuddenChangeThresholdPct <= 0 {
		config.SuddenChangeThresholdPct = 20
	}
	if config.SuddenWindowSize <= 0 {
		config.SuddenWindowSize = 7
	}
	if config.SustainedWindowSize <= 0 {
		config.SustainedWindowSize = 7
	}
	if config.SustainedChangeThresholdPct <= 0 {
		config.SustainedChangeThresholdPct = 10
	}
	return &AnomalyDetector{config: config}
}

// Detect runs all four tests against the series. A series with fewer than
// 2 points yields an empty list, not an error: no meaningful baseline exists.
func (d *AnomalyDetector) Detect(series MetricSeries) []Anomaly {
	anomalies := []Anomaly{}
	if series.Len() < 2 {
		return anomalies
	}

	if a, ok := d.zScoreTest(series); ok {
		anomalies = append(anomalies, a)
	}
	if a, ok := d.iqrTest(series); ok {
		anomalies = append(anomalies, a)
	}
	if a, ok := d.suddenChangeTest(series); ok {
		anomalies = append(anomalies, a)
	}
	if a, ok := d.sustainedTest(series); ok {
		anomalies = append(anomalies, a)
	}
	return anomalies
}

// zScoreTest flags the most recent point when it lies further than the
// configured number of standard deviations from the mean of all prior history.
func (d *AnomalyDetector) zScoreTest(series MetricSeries) (Anomaly, bool) {
	values := series.Values()
	history := values[:len(values)-1]
	last := series.Last()

	m := Mean(history)
	sd := StdDev(history)
	if sd == 0 {
		// Constant history has no dispersion to measure against.
		return Anomaly{}, false
	}

	z := math.Abs(last.Value-m) / sd
	if z <= d.config.ZScoreThreshold {
		return Anomaly{}, false
	}

	threshold := m + d.config.ZScoreThreshold*sd
	if last.Value < m {
		threshold = m - d.config.ZScoreThreshold*sd
	}

	a := d.newAnomaly(series.Name, AnomalyStatisticalOutlier, last, m, threshold)
	a.Severity = severityForZScore(z)
	a.Confidence = d.confidence(z/d.config.ZScoreThreshold, m)
	return a, true
}

// iqrTest flags the most recent point when it falls outside the Tukey fences
// computed over all prior history.
func (d *AnomalyDetector) iqrTest(series MetricSeries) (Anomaly, bool) {
	values := series.Values()
	history := values[:len(values)-1]
	last := series.Last()

	q1, _, q3 := Quartiles(history)
	iqr := q3 - q1
	if iqr == 0 {
		// Robust dispersion is unavailable; leave this point to the other tests.
		return Anomaly{}, false
	}

	lowerFence := q1 - d.config.IQRMultiplier*iqr
	upperFence := q3 + d.config.IQRMultiplier*iqr

	var threshold, excess float64
	switch {
	case last.Value < lowerFence:
		threshold = lowerFence
		excess = lowerFence - last.Value
	case last.Value > upperFence:
		threshold = upperFence
		excess = last.Value - upperFence
	default:
		return Anomaly{}, false
	}

	m := Mean(history)
	a := d.newAnomaly(series.Name, AnomalyIQROutlier, last, m, threshold)
	a.Severity = severityForRatio(1 + excess/iqr)
	a.Confidence = d.confidence(1+excess/iqr, m)
	return a, true
}

// suddenChangeTest compares the most recent point to the mean of the
// preceding trailing window and flags relative changes beyond the threshold.
// Direction (drop versus spike) follows the sign of the change.
func (d *AnomalyDetector) suddenChangeTest(series MetricSeries) (Anomaly, bool) {
	values := series.Values()
	last := series.Last()

	window := d.config.SuddenWindowSize
	if window > len(values)-1 {
		window = len(values) - 1
	}
	baseline := Mean(values[len(values)-1-window : len(values)-1])

	pct, zeroBaseline := deviationPct(last.Value, baseline)
	if math.Abs(pct) <= d.config.SuddenChangeThresholdPct {
		return Anomaly{}, false
	}

	typ := AnomalySuddenSpike
	threshold := baseline * (1 + d.config.SuddenChangeThresholdPct/100)
	if pct < 0 {
		typ = AnomalySuddenDrop
		threshold = baseline * (1 - d.config.SuddenChangeThresholdPct/100)
	}

	ratio := math.Abs(pct) / d.config.SuddenChangeThresholdPct
	a := d.newAnomaly(series.Name, typ, last, baseline, threshold)
	a.Severity = severityForRatio(ratio)
	a.Confidence = clamp01(ratio - 1)
	if zeroBaseline {
		a.Confidence = math.Min(a.Confidence, zeroBaselineConfidenceCap)
	}
	return a, true
}

// sustainedTest compares the trailing-N-point average with the preceding
// trailing-N-point average and flags shifts in the unfavorable direction.
func (d *AnomalyDetector) sustainedTest(series MetricSeries) (Anomaly, bool) {
	values := series.Values()
	w := d.config.SustainedWindowSize
	if len(values) < 2*w {
		return Anomaly{}, false
	}

	recent := Mean(values[len(values)-w:])
	previous := Mean(values[len(values)-2*w : len(values)-w])

	pct, zeroBaseline := deviationPct(recent, previous)
	unfavorable := pct < -d.config.SustainedChangeThresholdPct
	if d.config.Direction == LowerIsBetter {
		unfavorable = pct > d.config.SustainedChangeThresholdPct
	}
	if !unfavorable {
		return Anomaly{}, false
	}

	threshold := previous * (1 - d.config.SustainedChangeThresholdPct/100)
	if d.config.Direction == LowerIsBetter {
		threshold = previous * (1 + d.config.SustainedChangeThresholdPct/100)
	}

	ratio := math.Abs(pct) / d.config.SustainedChangeThresholdPct
	a := Anomaly{
		MetricName:          series.Name,
		Type:                AnomalySustainedDegradation,
		DetectedValue:       recent,
		ExpectedValue:       previous,
		ThresholdValue:      threshold,
		DeviationPercentage: pct,
		DetectedAt:          series.Last().Timestamp,
	}
	a.ID = anomalyID(series.Name, a.Type, a.DetectedAt)
	a.Severity = severityForRatio(ratio)
	a.Confidence = clamp01(ratio - 1)
	if zeroBaseline {
		a.Confidence = math.Min(a.Confidence, zeroBaselineConfidenceCap)
	}
	return a, true
}

// newAnomaly fills the fields shared by the point-level tests.
func (d *AnomalyDetector) newAnomaly(metric string, typ AnomalyType, last MetricPoint, expected, threshold float64) Anomaly {
	pct, _ := deviationPct(last.Value, expected)
	return Anomaly{
		ID:                  anomalyID(metric, typ, last.Timestamp),
		MetricName:          metric,
		Type:                typ,
		DetectedValue:       last.Value,
		ExpectedValue:       expected,
		ThresholdValue:      threshold,
		DeviationPercentage: pct,
		DetectedAt:          last.Timestamp,
	}
}

// confidence maps a deviation/threshold ratio to [0,1], capping it when the
// baseline was zero.
func (d *AnomalyDetector) confidence(ratio, expected float64) float64 {
	c := clamp01(ratio - 1)
	if expected == 0 {
		c = math.Min(c, zeroBaselineConfidenceCap)
	}
	return c
}

// deviationPct returns the relative deviation of detected from expected, in
// percent. When expected is zero but detected is not, it reports the detected
// value's sign times a large sentinel instead of dividing by zero, and the
// second return value is true so callers can cap confidence. Both zero means
// no deviation at all, never the sentinel.
func deviationPct(detected, expected float64) (float64, bool) {
	if expected == 0 {
		if detected == 0 {
			return 0, false
		}
		return math.Copysign(deviationSentinelPct, detected), true
	}
	return (detected - expected) / expected * 100, false
}

// severityForZScore buckets a z-score into a severity.
func severityForZScore(z float64) Severity {
	switch {
	case z > 4.0:
		return SeverityCritical
	case z > 3.0:
		return SeverityHigh
	case z > 2.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// severityForRatio buckets a deviation/threshold ratio into a severity. The
// cut points mirror the z-score buckets normalized by the 2.0 base threshold.
func severityForRatio(ratio float64) Severity {
	switch {
	case ratio > 2.0:
		return SeverityCritical
	case ratio > 1.5:
		return SeverityHigh
	case ratio > 1.25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// anomalyID builds a deterministic identifier so repeated runs over the same
// input produce identical records.
func anomalyID(metric string, typ AnomalyType, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", metric, typ, at.UnixNano())
}
