package argus

import (
	"math"
	"testing"
	"time"
)

// testEpoch anchors all synthetic series so results are reproducible.
var testEpoch = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// makeSeries builds a series with evenly spaced points starting at testEpoch.
func makeSeries(name string, step time.Duration, values ...float64) MetricSeries {
	s := MetricSeries{Name: name}
	for i, v := range values {
		s.Points = append(s.Points, MetricPoint{
			Timestamp: testEpoch.Add(time.Duration(i) * step),
			Value:     v,
		})
	}
	return s
}

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func findAnomaly(t *testing.T, anomalies []Anomaly, typ AnomalyType) Anomaly {
	t.Helper()
	for _, a := range anomalies {
		if a.Type == typ {
			return a
		}
	}
	t.Fatalf("no %s anomaly found in %d anomalies", typ, len(anomalies))
	return Anomaly{}
}
