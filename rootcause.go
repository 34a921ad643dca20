package argus

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// RootCauseConfig configures the root-cause analyzer.
type RootCauseConfig struct {
	// LookbackHours defines the analysis window ending at the degradation
	// start time.
	LookbackHours float64

	// CorrelationSignificanceCutoff is the minimum absolute Pearson
	// coefficient for a sibling metric to be retained as a candidate cause.
	CorrelationSignificanceCutoff float64

	// MaxSiblings caps the candidate metrics considered per run, bounding the
	// pairwise correlation work.
	MaxSiblings int

	// LeadingIndicatorBonus is added to a candidate's confidence when its own
	// shift precedes the target's degradation.
	LeadingIndicatorBonus float64
}

// DefaultRootCauseConfig returns sensible defaults for the analyzer.
func DefaultRootCauseConfig() RootCauseConfig {
	return RootCauseConfig{
		LookbackHours:                 24,
		CorrelationSignificanceCutoff: 0.6,
		MaxSiblings:                   50,
		LeadingIndicatorBonus:         0.1,
	}
}

// Degradation describes the detected drop that triggered an analysis.
type Degradation struct {
	StartTime      time.Time `json:"start_time"`
	Severity       Severity  `json:"severity"`
	PercentageDrop float64   `json:"percentage_drop"`
}

// PrimaryCause is a ranked candidate cause for a degradation.
type PrimaryCause struct {
	// Factor is the candidate metric name or a descriptive label.
	Factor                 string   `json:"factor"`
	Confidence             float64  `json:"confidence"`
	ContributionPercentage float64  `json:"contribution_percentage"`
	Evidence               []string `json:"evidence"`
}

// TimelineEvent is one entry in the causal timeline.
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Metric    string    `json:"metric,omitempty"`
	Event     string    `json:"event"`
}

// Incident is a historical degradation record held by an incident store.
type Incident struct {
	ID             string    `json:"id"`
	MetricName     string    `json:"metric_name"`
	PercentageDrop float64   `json:"percentage_drop"`
	OccurredAt     time.Time `json:"occurred_at"`
	RootCause      string    `json:"root_cause,omitempty"`
	Resolution     string    `json:"resolution,omitempty"`
}

// SimilarIncidentQuery is the nearest-neighbor contract for historical
// incident lookups: same metric, percentage drop within Tolerance points,
// most recent first, at most Limit results.
type SimilarIncidentQuery struct {
	MetricName     string  `json:"metric_name"`
	PercentageDrop float64 `json:"percentage_drop"`
	Tolerance      float64 `json:"tolerance"`
	Limit          int     `json:"limit"`
}

// IncidentStore is the historical-incident collaborator. The engine only
// defines the query contract; storage lifetime is the collaborator's concern.
type IncidentStore interface {
	SimilarIncidents(ctx context.Context, q SimilarIncidentQuery) ([]Incident, error)
	SaveIncident(ctx context.Context, inc Incident) error
}

// RootCauseAnalysis is the full result of one analyzer run.
type RootCauseAnalysis struct {
	MetricName       string          `json:"metric_name"`
	Degradation      Degradation     `json:"degradation"`
	PrimaryCauses    []PrimaryCause  `json:"primary_causes"`
	Correlations     []Correlation   `json:"correlations"`
	Timeline         []TimelineEvent `json:"timeline"`
	SimilarIncidents []Incident      `json:"similar_incidents"`
}

// Summary renders a human-readable explanation of the analysis.
func (a *RootCauseAnalysis) Summary() string {
	if len(a.PrimaryCauses) == 0 {
		return fmt.Sprintf("No candidate causes exceeded the correlation threshold for %s (%.1f%% drop).",
			a.MetricName, a.Degradation.PercentageDrop)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Root cause analysis for %s (%.1f%% drop, severity %s):\n",
		a.MetricName, a.Degradation.PercentageDrop, a.Degradation.Severity)
	for i, c := range a.PrimaryCauses {
		fmt.Fprintf(&sb, "%d. %s (contribution %.1f%%, confidence %.2f)\n",
			i+1, c.Factor, c.ContributionPercentage, c.Confidence)
		for _, ev := range c.Evidence {
			fmt.Fprintf(&sb, "   - %s\n", ev)
		}
	}
	return sb.String()
}

// defaultIncidentTolerance is the similar-incident percentage-drop tolerance.
const defaultIncidentTolerance = 10

// defaultIncidentLimit caps similar-incident results.
const defaultIncidentLimit = 5

// RootCauseAnalyzer ranks likely causes of a metric degradation by
// correlation and lag evidence against sibling metrics observed over the
// same window. The computation itself is pure; only the optional
// similar-incident lookup touches a collaborator.
type RootCauseAnalyzer struct {
	config    RootCauseConfig
	detector  *AnomalyDetector
	incidents IncidentStore
	logger    Logger
}

// NewRootCauseAnalyzer creates an analyzer. incidents may be nil, in which
// case SimilarIncidents is always empty. logger may be nil.
func NewRootCauseAnalyzer(config RootCauseConfig, incidents IncidentStore, logger Logger) *RootCauseAnalyzer {
	if config.LookbackHours <= 0 {
		config.LookbackHours = 24
	}
	if config.CorrelationSignificanceCutoff <= 0 || config.CorrelationSignificanceCutoff > 1 {
		config.CorrelationSignificanceCutoff = 0.6
	}
	if config.MaxSiblings <= 0 {
		config.MaxSiblings = 50
	}
	if config.LeadingIndicatorBonus <= 0 {
		config.LeadingIndicatorBonus = 0.1
	}
	if logger == nil {
		logger = NopLogger{}
	}
	return &RootCauseAnalyzer{
		config:    config,
		detector:  NewAnomalyDetector(DefaultDetectorConfig()),
		incidents: incidents,
		logger:    logger,
	}
}

// Analyze ranks candidate causes for a degradation of the target metric.
// Sibling series must be index-aligned with the target over the analysis
// window; resampling is a collaborator responsibility. Siblings that cannot
// be correlated (misaligned after windowing, or zero variance) are skipped.
// Zero retained candidates is a valid, if uninformative, outcome.
func (r *RootCauseAnalyzer) Analyze(ctx context.Context, target MetricSeries, deg Degradation, siblings []MetricSeries) (*RootCauseAnalysis, error) {
	if target.Len() == 0 {
		return nil, newAnalysisError("root_cause", target.Name, "empty target series", ErrInsufficientData)
	}

	windowStart := deg.StartTime.Add(-time.Duration(r.config.LookbackHours * float64(time.Hour)))
	targetWindow := target.Window(windowStart, deg.StartTime)
	if targetWindow.Len() < 2 {
		return nil, newAnalysisError("root_cause", target.Name,
			"fewer than 2 target points in analysis window", ErrInsufficientData)
	}
	targetValues := targetWindow.Values()
	targetShift := shiftPoint(targetWindow)

	if len(siblings) > r.config.MaxSiblings {
		r.logger.Warn("sibling candidates truncated",
			"metric", target.Name, "siblings", len(siblings), "cap", r.config.MaxSiblings)
		siblings = siblings[:r.config.MaxSiblings]
	}

	type candidate struct {
		cause PrimaryCause
		r     float64
	}
	var candidates []candidate
	var sumR2 float64
	correlations := []Correlation{}

	for _, sib := range siblings {
		sibWindow := sib.Window(windowStart, deg.StartTime)
		coeff, err := PearsonCorrelation(targetValues, sibWindow.Values())
		if err != nil {
			r.logger.Warn("sibling skipped, correlation not computable",
				"target", target.Name, "sibling", sib.Name, "error", err)
			continue
		}
		if math.Abs(coeff) < r.config.CorrelationSignificanceCutoff {
			continue
		}

		correlations = append(correlations, Correlation{
			MetricA:     target.Name,
			MetricB:     sib.Name,
			Coefficient: coeff,
		})

		evidence := []string{
			fmt.Sprintf("correlation %.2f with %s over the %.0fh window",
				coeff, target.Name, r.config.LookbackHours),
		}

		confidence := math.Abs(coeff)
		sibShift := shiftPoint(sibWindow)
		if !sibShift.IsZero() && !targetShift.IsZero() && sibShift.Before(targetShift) {
			confidence = math.Min(1.0, confidence+r.config.LeadingIndicatorBonus)
			evidence = append(evidence, fmt.Sprintf(
				"shift at %s precedes the target's shift at %s (leading indicator)",
				sibShift.Format(time.RFC3339), targetShift.Format(time.RFC3339)))
		}

		candidates = append(candidates, candidate{
			cause: PrimaryCause{
				Factor:     sib.Name,
				Confidence: confidence,
				Evidence:   evidence,
			},
			r: coeff,
		})
		sumR2 += coeff * coeff
	}

	causes := make([]PrimaryCause, 0, len(candidates))
	for _, c := range candidates {
		if sumR2 > 0 {
			c.cause.ContributionPercentage = c.r * c.r / sumR2 * 100
		}
		causes = append(causes, c.cause)
	}
	sort.SliceStable(causes, func(i, j int) bool {
		if causes[i].ContributionPercentage != causes[j].ContributionPercentage {
			return causes[i].ContributionPercentage > causes[j].ContributionPercentage
		}
		return causes[i].Confidence > causes[j].Confidence
	})

	analysis := &RootCauseAnalysis{
		MetricName:    target.Name,
		Degradation:   deg,
		PrimaryCauses: causes,
		Correlations:  correlations,
		Timeline:      r.buildTimeline(windowStart, deg, siblings),
	}

	analysis.SimilarIncidents = []Incident{}
	if r.incidents != nil {
		matches, err := r.incidents.SimilarIncidents(ctx, SimilarIncidentQuery{
			MetricName:     target.Name,
			PercentageDrop: deg.PercentageDrop,
			Tolerance:      defaultIncidentTolerance,
			Limit:          defaultIncidentLimit,
		})
		if err != nil {
			r.logger.Warn("similar incident lookup failed", "metric", target.Name, "error", err)
		} else if matches != nil {
			analysis.SimilarIncidents = matches
		}
	}

	return analysis, nil
}

// buildTimeline assembles chronologically ordered events: analysis start,
// each candidate's own detected shift, and the target degradation detection.
func (r *RootCauseAnalyzer) buildTimeline(windowStart time.Time, deg Degradation, siblings []MetricSeries) []TimelineEvent {
	events := []TimelineEvent{
		{Timestamp: windowStart, Event: "analysis_window_start"},
	}

	for _, sib := range siblings {
		sibWindow := sib.Window(windowStart, deg.StartTime)
		for _, a := range r.detector.Detect(sibWindow) {
			events = append(events, TimelineEvent{
				Timestamp: a.DetectedAt,
				Metric:    sib.Name,
				Event:     "candidate_shift_" + string(a.Type),
			})
		}
	}

	events = append(events, TimelineEvent{
		Timestamp: deg.StartTime,
		Event:     "degradation_detected",
	})

	// Dedup identical events, then sort ascending.
	seen := make(map[string]bool, len(events))
	deduped := events[:0]
	for _, e := range events {
		key := fmt.Sprintf("%d|%s|%s", e.Timestamp.UnixNano(), e.Metric, e.Event)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, e)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Timestamp.Before(deduped[j].Timestamp)
	})
	return deduped
}

// shiftPoint returns the timestamp of the largest single-step change in the
// series, or the zero time when no step exists.
func shiftPoint(series MetricSeries) time.Time {
	if series.Len() < 2 {
		return time.Time{}
	}
	bestIdx := -1
	bestDelta := 0.0
	for i := 1; i < series.Len(); i++ {
		delta := math.Abs(series.Points[i].Value - series.Points[i-1].Value)
		if delta > bestDelta {
			bestDelta = delta
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return time.Time{}
	}
	return series.Points[bestIdx].Timestamp
}
