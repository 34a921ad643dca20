package argus

import (
	"fmt"
	"sort"
	"strings"
)

// ActionType is the urgency class of a recommendation.
type ActionType string

const (
	ActionImmediate ActionType = "immediate"
	ActionShortTerm ActionType = "short_term"
	ActionLongTerm  ActionType = "long_term"
)

// Priority mirrors anomaly severity for recommendations.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// CauseCategory keys the remediation catalog.
type CauseCategory string

const (
	CauseHighErrorRate      CauseCategory = "high_error_rate"
	CauseHighLatency        CauseCategory = "high_latency"
	CauseQualityDegradation CauseCategory = "quality_degradation"
	CauseHighCost           CauseCategory = "high_cost"
	CauseLowThroughput      CauseCategory = "low_throughput"
)

// Effort is a qualitative implementation-effort tag.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Recommendation is a prioritized, actionable remediation.
type Recommendation struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Priority            Priority   `json:"priority"`
	ActionType          ActionType `json:"action_type"`
	EstimatedImpact     string     `json:"estimated_impact"`
	EstimatedEffort     Effort     `json:"estimated_effort"`
	ImplementationSteps []string   `json:"implementation_steps"`
	Confidence          float64    `json:"confidence"`
}

// RecommendationTemplate is one entry in the remediation catalog. Matching is
// deterministic: a cause whose factor contains any trigger keyword
// (case-insensitively) produces exactly one recommendation from this template.
type RecommendationTemplate struct {
	Category        CauseCategory
	TriggerKeywords []string
	Title           string // fmt pattern, receives the cause factor
	Description     string // fmt pattern, receives factor and contribution
	ActionType      ActionType
	EstimatedImpact string
	EstimatedEffort Effort
	Steps           []string
	BaseConfidence  float64
}

// defaultCatalog is the fixed remediation catalog, ordered for deterministic
// output. Impact and effort are template-fixed, never recomputed.
var defaultCatalog = []RecommendationTemplate{
	{
		Category:        CauseHighErrorRate,
		TriggerKeywords: []string{"error_rate", "error_count", "errors", "failure"},
		Title:           "Reduce error rate driven by %s",
		Description:     "The %s metric explains %.0f%% of the observed degradation. Failing requests are dragging down downstream quality metrics.",
		ActionType:      ActionImmediate,
		EstimatedImpact: "+10-20pp success rate",
		EstimatedEffort: EffortMedium,
		Steps: []string{
			"Inspect recent error logs for the dominant failure class",
			"Roll back or gate the most recent deployment if errors started with it",
			"Add a retry with exponential backoff around the failing dependency",
			"Alert on the error rate at half the current anomaly threshold",
		},
		BaseConfidence: 0.85,
	},
	{
		Category:        CauseHighLatency,
		TriggerKeywords: []string{"latency", "response_time", "duration", "p99", "p95"},
		Title:           "Bring %s back under its latency budget",
		Description:     "The %s metric explains %.0f%% of the observed degradation. Slow responses usually cascade into timeouts and aborted sessions.",
		ActionType:      ActionShortTerm,
		EstimatedImpact: "-30% tail latency",
		EstimatedEffort: EffortMedium,
		Steps: []string{
			"Profile the hottest code path observed during the regression window",
			"Check saturation on the serving fleet and scale out if above 80%",
			"Enable or tune response caching for repeated requests",
			"Tighten client timeouts so queued work sheds early",
		},
		BaseConfidence: 0.8,
	},
	{
		Category:        CauseQualityDegradation,
		TriggerKeywords: []string{"quality", "score", "rating", "satisfaction"},
		Title:           "Investigate quality regression in %s",
		Description:     "The %s metric explains %.0f%% of the observed degradation. Output quality shifted without a matching traffic change.",
		ActionType:      ActionShortTerm,
		EstimatedImpact: "+5-10pp quality score",
		EstimatedEffort: EffortHigh,
		Steps: []string{
			"Diff the serving configuration against the last known-good snapshot",
			"Sample degraded outputs and label the dominant failure mode",
			"Re-run the evaluation suite against the current configuration",
			"Stage the fix behind a percentage rollout before full release",
		},
		BaseConfidence: 0.7,
	},
	{
		Category:        CauseHighCost,
		TriggerKeywords: []string{"cost", "spend", "billing", "tokens"},
		Title:           "Contain cost growth from %s",
		Description:     "The %s metric explains %.0f%% of the observed degradation. Unit economics are drifting from the baseline.",
		ActionType:      ActionLongTerm,
		EstimatedImpact: "-15-25% unit cost",
		EstimatedEffort: EffortMedium,
		Steps: []string{
			"Attribute the cost increase to request class or customer segment",
			"Cap or batch the most expensive request class",
			"Route low-complexity traffic to a cheaper serving tier",
		},
		BaseConfidence: 0.7,
	},
	{
		Category:        CauseLowThroughput,
		TriggerKeywords: []string{"throughput", "qps", "rps", "requests_per"},
		Title:           "Restore throughput of %s",
		Description:     "The %s metric explains %.0f%% of the observed degradation. The system is serving fewer requests than its recent baseline.",
		ActionType:      ActionImmediate,
		EstimatedImpact: "+20% sustained throughput",
		EstimatedEffort: EffortLow,
		Steps: []string{
			"Verify upstream traffic actually arrived (load balancer metrics)",
			"Check worker pool saturation and queue depth",
			"Raise concurrency limits if resource headroom allows",
		},
		BaseConfidence: 0.75,
	},
}

// RecommendationEngine maps ranked causes to the fixed remediation catalog.
// Matching is deterministic keyword association, never fuzzy, so identical
// input always produces byte-for-byte identical output.
type RecommendationEngine struct {
	catalog []RecommendationTemplate
}

// NewRecommendationEngine creates an engine with the default catalog.
func NewRecommendationEngine() *RecommendationEngine {
	return &RecommendationEngine{catalog: defaultCatalog}
}

// NewRecommendationEngineWithCatalog creates an engine with a custom catalog,
// keeping the catalog data-driven and testable in isolation.
func NewRecommendationEngineWithCatalog(catalog []RecommendationTemplate) *RecommendationEngine {
	return &RecommendationEngine{catalog: catalog}
}

// Recommend matches ranked causes against the catalog. Each matched template
// produces exactly one recommendation, populated from its highest-ranked
// matching cause. Priority derives 1:1 from the source anomaly severity. No
// matching template for any cause yields an empty list, not an error.
func (e *RecommendationEngine) Recommend(causes []PrimaryCause, severity Severity) []Recommendation {
	recs := []Recommendation{}
	for _, tpl := range e.catalog {
		cause, ok := firstMatch(tpl, causes)
		if !ok {
			continue
		}
		recs = append(recs, e.render(tpl, cause, severity))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.rank() > recs[j].Priority.rank()
	})
	return recs
}

// RecommendForAnomaly maps a raw anomaly straight to the catalog using the
// metric name as the matching factor, for callers that skip root-cause
// analysis.
func (e *RecommendationEngine) RecommendForAnomaly(a Anomaly) []Recommendation {
	cause := PrimaryCause{
		Factor:                 a.MetricName,
		Confidence:             a.Confidence,
		ContributionPercentage: 100,
	}
	return e.Recommend([]PrimaryCause{cause}, a.Severity)
}

// firstMatch returns the first cause (already ranked by contribution) whose
// factor contains one of the template's trigger keywords.
func firstMatch(tpl RecommendationTemplate, causes []PrimaryCause) (PrimaryCause, bool) {
	for _, c := range causes {
		factor := strings.ToLower(c.Factor)
		for _, kw := range tpl.TriggerKeywords {
			if strings.Contains(factor, kw) {
				return c, true
			}
		}
	}
	return PrimaryCause{}, false
}

func (e *RecommendationEngine) render(tpl RecommendationTemplate, cause PrimaryCause, severity Severity) Recommendation {
	steps := make([]string, len(tpl.Steps))
	copy(steps, tpl.Steps)

	confidence := tpl.BaseConfidence
	if cause.Confidence > 0 {
		confidence = clamp01(tpl.BaseConfidence * cause.Confidence)
	}

	return Recommendation{
		ID:                  fmt.Sprintf("%s-%s", tpl.Category, slug(cause.Factor)),
		Title:               fmt.Sprintf(tpl.Title, cause.Factor),
		Description:         fmt.Sprintf(tpl.Description, cause.Factor, cause.ContributionPercentage),
		Priority:            priorityForSeverity(severity),
		ActionType:          tpl.ActionType,
		EstimatedImpact:     tpl.EstimatedImpact,
		EstimatedEffort:     tpl.EstimatedEffort,
		ImplementationSteps: steps,
		Confidence:          confidence,
	}
}

// priorityForSeverity maps severities to priorities 1:1.
func priorityForSeverity(s Severity) Priority {
	switch s {
	case SeverityCritical:
		return PriorityCritical
	case SeverityHigh:
		return PriorityHigh
	case SeverityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// slug normalizes a factor name for use in a deterministic identifier.
func slug(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, s)
}
