package argus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// MetricStore is the input collaborator: it supplies a timestamp-ascending
// MetricSeries for a metric and time range. The engine re-derives everything
// from this store on each call; it never reads back its own prior output.
type MetricStore interface {
	QueryRange(ctx context.Context, metric string, start, end time.Time) (MetricSeries, error)
}

// ReportArchive persists finished reports. Optional.
type ReportArchive interface {
	StoreReport(ctx context.Context, report *InsightReport) error
}

// InsightReport is the combined output of one engine run over one metric.
type InsightReport struct {
	Metric          string             `json:"metric"`
	GeneratedAt     time.Time          `json:"generated_at"`
	WindowStart     time.Time          `json:"window_start"`
	WindowEnd       time.Time          `json:"window_end"`
	Anomalies       []Anomaly          `json:"anomalies"`
	Forecast        *ForecastResult    `json:"forecast,omitempty"`
	RootCause       *RootCauseAnalysis `json:"root_cause,omitempty"`
	Recommendations []Recommendation   `json:"recommendations"`
}

// EngineOptions carries the collaborators an Engine may use. Only Metrics is
// required.
type EngineOptions struct {
	Metrics   MetricStore
	Incidents IncidentStore
	Archive   ReportArchive
	Logger    Logger

	// Directions declares per-metric favorable direction; metrics not listed
	// default to HigherIsBetter.
	Directions map[string]MetricDirection

	// Siblings lists the candidate cause metrics fetched when a degradation
	// on the keyed metric triggers root-cause analysis.
	Siblings map[string][]string
}

// Engine orchestrates the full insight pipeline for one metric at a time:
// fetch, detect, root-cause, recommend and forecast. The engine holds no
// mutable state between runs; concurrent Run calls for different metrics are
// fully independent. It blocks only at collaborator I/O.
type Engine struct {
	config      Config
	metrics     MetricStore
	incidents   IncidentStore
	archive     ReportArchive
	logger      Logger
	directions  map[string]MetricDirection
	siblings    map[string][]string
	forecaster  *Forecaster
	recommender *RecommendationEngine
	analyzer    *RootCauseAnalyzer
}

// NewEngine creates an engine. opts.Metrics must be non-nil.
func NewEngine(config Config, opts EngineOptions) (*Engine, error) {
	if opts.Metrics == nil {
		return nil, errors.New("argus: a MetricStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	return &Engine{
		config:      config,
		metrics:     opts.Metrics,
		incidents:   opts.Incidents,
		archive:     opts.Archive,
		logger:      logger,
		directions:  opts.Directions,
		siblings:    opts.Siblings,
		forecaster:  NewForecaster(config.forecastConfig()),
		recommender: NewRecommendationEngine(),
		analyzer:    NewRootCauseAnalyzer(config.rootCauseConfig(), opts.Incidents, logger),
	}, nil
}

// Run produces an InsightReport for metric over [start, end].
func (e *Engine) Run(ctx context.Context, metric string, start, end time.Time) (*InsightReport, error) {
	series, err := e.metrics.QueryRange(ctx, metric, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", metric, err)
	}
	if series.Len() == 0 {
		return nil, newAnalysisError("run", metric, "metric store returned no points", ErrInsufficientData)
	}
	series.Name = metric

	report := &InsightReport{
		Metric:          metric,
		GeneratedAt:     time.Now().UTC(),
		WindowStart:     start,
		WindowEnd:       end,
		Anomalies:       []Anomaly{},
		Recommendations: []Recommendation{},
	}

	detector := NewAnomalyDetector(e.config.detectorConfig(e.direction(metric)))
	report.Anomalies = detector.Detect(series)
	e.logger.Info("anomaly detection complete", "metric", metric, "anomalies", len(report.Anomalies))

	if deg, ok := degradationFrom(report.Anomalies, e.direction(metric)); ok {
		analysis, err := e.analyzeDegradation(ctx, series, deg)
		if err != nil {
			e.logger.Error("root cause analysis failed", "metric", metric, "error", err)
		} else {
			report.RootCause = analysis
			report.Recommendations = e.recommender.Recommend(analysis.PrimaryCauses, deg.Severity)
			e.saveIncident(ctx, metric, deg, analysis)
		}
	}

	forecast, err := e.forecaster.Forecast(series)
	switch {
	case err == nil:
		report.Forecast = forecast
	case errors.Is(err, ErrInsufficientData):
		e.logger.Warn("forecast skipped", "metric", metric, "error", err)
	default:
		return nil, err
	}

	if e.archive != nil {
		if err := e.archive.StoreReport(ctx, report); err != nil {
			e.logger.Error("report archive failed", "metric", metric, "error", err)
		}
	}

	return report, nil
}

// analyzeDegradation fetches sibling series over the analysis window and runs
// the root-cause analyzer.
func (e *Engine) analyzeDegradation(ctx context.Context, target MetricSeries, deg Degradation) (*RootCauseAnalysis, error) {
	windowStart := deg.StartTime.Add(-time.Duration(e.config.LookbackHours * float64(time.Hour)))

	var siblings []MetricSeries
	for _, name := range e.siblings[target.Name] {
		sib, err := e.metrics.QueryRange(ctx, name, windowStart, deg.StartTime)
		if err != nil {
			e.logger.Warn("sibling fetch failed", "metric", name, "error", err)
			continue
		}
		sib.Name = name
		siblings = append(siblings, sib)
	}

	return e.analyzer.Analyze(ctx, target, deg, siblings)
}

// saveIncident records the degradation with the incident collaborator so
// future analyses can find it as a similar incident.
func (e *Engine) saveIncident(ctx context.Context, metric string, deg Degradation, analysis *RootCauseAnalysis) {
	if e.incidents == nil {
		return
	}
	inc := Incident{
		ID:             fmt.Sprintf("%s-%d", metric, deg.StartTime.UnixNano()),
		MetricName:     metric,
		PercentageDrop: deg.PercentageDrop,
		OccurredAt:     deg.StartTime,
	}
	if len(analysis.PrimaryCauses) > 0 {
		inc.RootCause = analysis.PrimaryCauses[0].Factor
	}
	if err := e.incidents.SaveIncident(ctx, inc); err != nil {
		e.logger.Warn("incident save failed", "metric", metric, "error", err)
	}
}

// direction returns the declared direction for a metric, defaulting to
// HigherIsBetter.
func (e *Engine) direction(metric string) MetricDirection {
	if d, ok := e.directions[metric]; ok {
		return d
	}
	return HigherIsBetter
}

// degradationFrom selects the anomaly that best represents a degradation:
// drops (or spikes, for lower-is-better metrics) and sustained degradations,
// most severe first, largest relative deviation as the tiebreak.
func degradationFrom(anomalies []Anomaly, direction MetricDirection) (Degradation, bool) {
	badType := AnomalySuddenDrop
	if direction == LowerIsBetter {
		badType = AnomalySuddenSpike
	}

	var best *Anomaly
	for i := range anomalies {
		a := &anomalies[i]
		if a.Type != badType && a.Type != AnomalySustainedDegradation {
			continue
		}
		if best == nil ||
			a.Severity.rank() > best.Severity.rank() ||
			(a.Severity.rank() == best.Severity.rank() &&
				math.Abs(a.DeviationPercentage) > math.Abs(best.DeviationPercentage)) {
			best = a
		}
	}
	if best == nil {
		return Degradation{}, false
	}
	return Degradation{
		StartTime:      best.DetectedAt,
		Severity:       best.Severity,
		PercentageDrop: math.Abs(best.DeviationPercentage),
	}, true
}
