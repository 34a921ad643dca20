package argus

import (
	"testing"
	"time"
)

func TestMetricSeries_Window(t *testing.T) {
	s := makeSeries("m", time.Hour, 1, 2, 3, 4, 5)

	w := s.Window(testEpoch.Add(time.Hour), testEpoch.Add(3*time.Hour))
	if w.Len() != 3 {
		t.Fatalf("got %d points, want 3 (bounds inclusive)", w.Len())
	}
	if w.Points[0].Value != 2 || w.Points[2].Value != 4 {
		t.Errorf("window values = %v", w.Values())
	}
	if w.Name != "m" {
		t.Errorf("window name = %q, want m", w.Name)
	}

	empty := s.Window(testEpoch.Add(10*time.Hour), testEpoch.Add(20*time.Hour))
	if empty.Len() != 0 {
		t.Errorf("got %d points outside the range, want 0", empty.Len())
	}
}

func TestMetricSeries_Last(t *testing.T) {
	s := makeSeries("m", time.Hour, 1, 2, 3)
	last := s.Last()
	if last.Value != 3 {
		t.Errorf("last value = %f, want 3", last.Value)
	}
	if !last.Timestamp.Equal(testEpoch.Add(2 * time.Hour)) {
		t.Errorf("last timestamp = %v", last.Timestamp)
	}
}

func TestMetricDirection_String(t *testing.T) {
	if HigherIsBetter.String() != "higher_is_better" {
		t.Errorf("HigherIsBetter = %q", HigherIsBetter.String())
	}
	if LowerIsBetter.String() != "lower_is_better" {
		t.Errorf("LowerIsBetter = %q", LowerIsBetter.String())
	}
}
