package argus

import "time"

// MetricPoint is a single observation of a named metric.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSeries is a timestamp-ascending sequence of points for one metric.
// The engine assumes callers supply points in ascending order and does not
// sort them itself; out-of-order input is undefined behavior.
type MetricSeries struct {
	Name   string        `json:"name"`
	Points []MetricPoint `json:"points"`
}

// Len returns the number of points in the series.
func (s MetricSeries) Len() int { return len(s.Points) }

// Values returns the point values in series order.
func (s MetricSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// Last returns the most recent point, or the zero value for an empty series.
func (s MetricSeries) Last() MetricPoint {
	if len(s.Points) == 0 {
		return MetricPoint{}
	}
	return s.Points[len(s.Points)-1]
}

// Window returns the sub-series of points with timestamps in [from, to].
func (s MetricSeries) Window(from, to time.Time) MetricSeries {
	out := MetricSeries{Name: s.Name}
	for _, p := range s.Points {
		if p.Timestamp.Before(from) || p.Timestamp.After(to) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// MetricDirection declares which way a metric is supposed to move.
// Success rates and quality scores are HigherIsBetter; latency, cost and
// error counts are LowerIsBetter. The sustained-degradation test uses this
// to decide which direction of change is unfavorable.
type MetricDirection int

const (
	// HigherIsBetter means a decrease is a degradation.
	HigherIsBetter MetricDirection = iota
	// LowerIsBetter means an increase is a degradation.
	LowerIsBetter
)

func (d MetricDirection) String() string {
	if d == LowerIsBetter {
		return "lower_is_better"
	}
	return "higher_is_better"
}

// Statistics is an immutable descriptive snapshot of a series. It is
// recomputed on every call; the engine caches nothing.
type Statistics struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// Correlation records a significant pairwise correlation between two metrics.
// Only pairs whose absolute coefficient exceeds the significance cutoff are
// retained by the root-cause analyzer.
type Correlation struct {
	MetricA     string  `json:"metric_a"`
	MetricB     string  `json:"metric_b"`
	Coefficient float64 `json:"coefficient"`
}
