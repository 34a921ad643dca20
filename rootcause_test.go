package argus

import (
	"context"
	"testing"
	"time"
)

// stubIncidentStore records saves and returns canned similar incidents.
type stubIncidentStore struct {
	incidents []Incident
	saved     []Incident
	lastQuery SimilarIncidentQuery
}

func (s *stubIncidentStore) SimilarIncidents(ctx context.Context, q SimilarIncidentQuery) ([]Incident, error) {
	s.lastQuery = q
	return s.incidents, nil
}

func (s *stubIncidentStore) SaveIncident(ctx context.Context, inc Incident) error {
	s.saved = append(s.saved, inc)
	return nil
}

func degradationAt(series MetricSeries) Degradation {
	return Degradation{
		StartTime:      series.Last().Timestamp,
		Severity:       SeverityHigh,
		PercentageDrop: 40,
	}
}

func TestAnalyze_RanksByContribution(t *testing.T) {
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), nil, nil)

	target := makeSeries("success_rate", time.Hour, 1, 2, 3, 4, 5)
	// Perfectly correlated sibling (r = 1.0).
	strong := makeSeries("error_rate", time.Hour, 2, 4, 6, 8, 10)
	// r = 0.9 exactly: first two values swapped.
	weaker := makeSeries("latency", time.Hour, 2, 1, 3, 4, 5)
	// r ≈ 0.35, below the 0.6 cutoff.
	noise := makeSeries("cost", time.Hour, 3, 1, 4, 1, 5)

	analysis, err := a.Analyze(context.Background(), target, degradationAt(target),
		[]MetricSeries{noise, weaker, strong})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.PrimaryCauses) != 2 {
		t.Fatalf("got %d primary causes, want 2", len(analysis.PrimaryCauses))
	}
	if analysis.PrimaryCauses[0].Factor != "error_rate" {
		t.Errorf("top cause = %s, want error_rate", analysis.PrimaryCauses[0].Factor)
	}
	if analysis.PrimaryCauses[1].Factor != "latency" {
		t.Errorf("second cause = %s, want latency", analysis.PrimaryCauses[1].Factor)
	}
	for _, c := range analysis.PrimaryCauses {
		if c.Factor == "cost" {
			t.Error("sub-cutoff sibling must be excluded entirely")
		}
	}

	// Contributions are r² normalized: 1/(1+0.81) and 0.81/(1+0.81).
	if !approxEqual(analysis.PrimaryCauses[0].ContributionPercentage, 55.25, 0.1) {
		t.Errorf("top contribution = %f, want about 55.25",
			analysis.PrimaryCauses[0].ContributionPercentage)
	}
	total := analysis.PrimaryCauses[0].ContributionPercentage +
		analysis.PrimaryCauses[1].ContributionPercentage
	if !approxEqual(total, 100, 1e-6) {
		t.Errorf("contributions sum to %f, want 100", total)
	}
}

func TestAnalyze_SingleCandidateGetsFullContribution(t *testing.T) {
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), nil, nil)

	target := makeSeries("success_rate", time.Hour, 10, 10, 10, 10, 10, 10, 2)
	sibling := makeSeries("error_count", time.Hour, 1, 1, 1, 1, 1, 1, 9)

	analysis, err := a.Analyze(context.Background(), target, degradationAt(target),
		[]MetricSeries{sibling})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.PrimaryCauses) != 1 {
		t.Fatalf("got %d causes, want 1", len(analysis.PrimaryCauses))
	}
	cause := analysis.PrimaryCauses[0]
	if cause.Factor != "error_count" {
		t.Errorf("factor = %s, want error_count", cause.Factor)
	}
	if !approxEqual(cause.ContributionPercentage, 100, 1e-6) {
		t.Errorf("contribution = %f, want 100 for the only candidate", cause.ContributionPercentage)
	}
	if len(cause.Evidence) == 0 {
		t.Error("expected correlation evidence on the cause")
	}
}

func TestAnalyze_NoCandidates(t *testing.T) {
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), nil, nil)

	target := makeSeries("success_rate", time.Hour, 1, 2, 3, 4, 5)
	uncorrelated := makeSeries("cost", time.Hour, 3, 1, 4, 1, 5)

	analysis, err := a.Analyze(context.Background(), target, degradationAt(target),
		[]MetricSeries{uncorrelated})
	if err != nil {
		t.Fatalf("zero candidates must not be an error, got %v", err)
	}
	if analysis.PrimaryCauses == nil {
		t.Fatal("primaryCauses must be an empty slice, not nil")
	}
	if len(analysis.PrimaryCauses) != 0 {
		t.Fatalf("got %d causes, want 0", len(analysis.PrimaryCauses))
	}
}

func TestAnalyze_SkipsZeroVarianceSibling(t *testing.T) {
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), nil, nil)

	target := makeSeries("success_rate", time.Hour, 1, 2, 3, 4, 5)
	flat := makeSeries("constant", time.Hour, 7, 7, 7, 7, 7)

	analysis, err := a.Analyze(context.Background(), target, degradationAt(target),
		[]MetricSeries{flat})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.PrimaryCauses) != 0 {
		t.Fatal("zero-variance sibling must be skipped, not treated as a cause")
	}
}

func TestAnalyze_LeadingIndicatorBonus(t *testing.T) {
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), nil, nil)

	// The sibling's big step happens one hour before the target's.
	target := makeSeries("success_rate", time.Hour, 10, 10, 10, 10, 10, 10, 10, 2)
	sibling := makeSeries("error_count", time.Hour, 1, 1, 1, 1, 1, 1, 9, 9.5)

	analysis, err := a.Analyze(context.Background(), target, degradationAt(target),
		[]MetricSeries{sibling})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.PrimaryCauses) != 1 {
		t.Fatalf("got %d causes, want 1", len(analysis.PrimaryCauses))
	}

	cause := analysis.PrimaryCauses[0]
	r := analysis.Correlations[0].Coefficient
	wantBase := r
	if wantBase < 0 {
		wantBase = -wantBase
	}
	if !approxEqual(cause.Confidence, wantBase+0.1, 1e-9) && cause.Confidence != 1.0 {
		t.Errorf("confidence = %f, want |r|+0.1 (or capped at 1.0)", cause.Confidence)
	}
	if len(cause.Evidence) < 2 {
		t.Error("leading indicator should add evidence")
	}
}

func TestAnalyze_Timeline(t *testing.T) {
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), nil, nil)

	target := makeSeries("success_rate", time.Hour, 10, 10, 10, 10, 10, 10, 2)
	sibling := makeSeries("error_count", time.Hour, 1, 1, 1, 1, 1, 1, 9)

	analysis, err := a.Analyze(context.Background(), target, degradationAt(target),
		[]MetricSeries{sibling})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.Timeline) < 2 {
		t.Fatalf("timeline has %d events, want at least window start and detection", len(analysis.Timeline))
	}
	if analysis.Timeline[0].Event != "analysis_window_start" {
		t.Errorf("first event = %s, want analysis_window_start", analysis.Timeline[0].Event)
	}
	for i := 1; i < len(analysis.Timeline); i++ {
		if analysis.Timeline[i].Timestamp.Before(analysis.Timeline[i-1].Timestamp) {
			t.Fatal("timeline must be sorted ascending")
		}
	}
	last := analysis.Timeline[len(analysis.Timeline)-1]
	if last.Event != "degradation_detected" {
		t.Errorf("last event = %s, want degradation_detected", last.Event)
	}
}

func TestAnalyze_SimilarIncidents(t *testing.T) {
	store := &stubIncidentStore{incidents: []Incident{
		{ID: "inc-1", MetricName: "success_rate", PercentageDrop: 42},
	}}
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), store, nil)

	target := makeSeries("success_rate", time.Hour, 10, 10, 10, 10, 10, 10, 2)
	analysis, err := a.Analyze(context.Background(), target, degradationAt(target), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.SimilarIncidents) != 1 || analysis.SimilarIncidents[0].ID != "inc-1" {
		t.Fatalf("similar incidents not propagated: %+v", analysis.SimilarIncidents)
	}
	if store.lastQuery.MetricName != "success_rate" {
		t.Errorf("query metric = %s, want success_rate", store.lastQuery.MetricName)
	}
	if store.lastQuery.Tolerance != defaultIncidentTolerance {
		t.Errorf("query tolerance = %f, want %d", store.lastQuery.Tolerance, defaultIncidentTolerance)
	}
	if store.lastQuery.Limit != defaultIncidentLimit {
		t.Errorf("query limit = %d, want %d", store.lastQuery.Limit, defaultIncidentLimit)
	}
}

func TestAnalyze_EmptyTarget(t *testing.T) {
	a := NewRootCauseAnalyzer(DefaultRootCauseConfig(), nil, nil)

	_, err := a.Analyze(context.Background(), MetricSeries{Name: "x"}, Degradation{}, nil)
	if err == nil {
		t.Fatal("expected an error for an empty target series")
	}
}
