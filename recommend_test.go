package argus

import (
	"encoding/json"
	"testing"
)

func TestRecommend_ErrorRateCause(t *testing.T) {
	e := NewRecommendationEngine()

	causes := []PrimaryCause{
		{Factor: "error_rate", Confidence: 0.9, ContributionPercentage: 80},
	}
	recs := e.Recommend(causes, SeverityHigh)

	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Priority != PriorityHigh {
		t.Errorf("priority = %s, want high for a high-severity source", rec.Priority)
	}
	if rec.ActionType != ActionImmediate {
		t.Errorf("action type = %s, want immediate", rec.ActionType)
	}
	if rec.ID != "high_error_rate-error_rate" {
		t.Errorf("id = %q, want deterministic category-factor id", rec.ID)
	}
	if len(rec.ImplementationSteps) == 0 {
		t.Error("expected implementation steps from the catalog")
	}
	if !approxEqual(rec.Confidence, 0.85*0.9, 1e-9) {
		t.Errorf("confidence = %f, want base scaled by cause confidence", rec.Confidence)
	}
}

func TestRecommend_KeywordMatchingIsCaseInsensitive(t *testing.T) {
	e := NewRecommendationEngine()

	recs := e.Recommend([]PrimaryCause{{Factor: "API_P99_Latency_ms"}}, SeverityMedium)
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if rec := recs[0]; rec.ID != "high_latency-api_p99_latency_ms" {
		t.Errorf("id = %q", rec.ID)
	}
}

func TestRecommend_OneRecommendationPerTemplate(t *testing.T) {
	e := NewRecommendationEngine()

	// Two causes match the error-rate template; only the higher-ranked one
	// (first in slice order) may produce a recommendation.
	causes := []PrimaryCause{
		{Factor: "upstream_error_count", ContributionPercentage: 60},
		{Factor: "gateway_error_rate", ContributionPercentage: 40},
		{Factor: "request_latency_p95", ContributionPercentage: 20},
	}
	recs := e.Recommend(causes, SeverityCritical)

	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2 (one per matched template)", len(recs))
	}
	if recs[0].ID != "high_error_rate-upstream_error_count" {
		t.Errorf("error-rate rec built from %q, want the highest-ranked matching cause", recs[0].ID)
	}
}

func TestRecommend_NoMatch(t *testing.T) {
	e := NewRecommendationEngine()

	recs := e.Recommend([]PrimaryCause{{Factor: "gpu_temperature"}}, SeverityLow)
	if recs == nil {
		t.Fatal("no match must yield an empty slice, not nil")
	}
	if len(recs) != 0 {
		t.Fatalf("got %d recommendations, want 0", len(recs))
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	e := NewRecommendationEngine()

	causes := []PrimaryCause{
		{Factor: "token_spend", Confidence: 0.7, ContributionPercentage: 55},
		{Factor: "p99_latency", Confidence: 0.65, ContributionPercentage: 45},
	}

	first, err := json.Marshal(e.Recommend(causes, SeverityMedium))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	second, err := json.Marshal(e.Recommend(causes, SeverityMedium))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("identical input must produce byte-identical output")
	}
}

func TestRecommendForAnomaly(t *testing.T) {
	e := NewRecommendationEngine()

	a := Anomaly{
		MetricName: "request_throughput",
		Type:       AnomalySuddenDrop,
		Severity:   SeverityCritical,
		Confidence: 0.8,
	}
	recs := e.RecommendForAnomaly(a)
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if recs[0].Priority != PriorityCritical {
		t.Errorf("priority = %s, want critical", recs[0].Priority)
	}
	if recs[0].ID != "low_throughput-request_throughput" {
		t.Errorf("id = %q", recs[0].ID)
	}
}

func TestPriorityForSeverity(t *testing.T) {
	cases := []struct {
		severity Severity
		want     Priority
	}{
		{SeverityLow, PriorityLow},
		{SeverityMedium, PriorityMedium},
		{SeverityHigh, PriorityHigh},
		{SeverityCritical, PriorityCritical},
	}
	for _, tc := range cases {
		if got := priorityForSeverity(tc.severity); got != tc.want {
			t.Errorf("priorityForSeverity(%s) = %s, want %s", tc.severity, got, tc.want)
		}
	}
}
