// Package argus is an analytics insight engine for operational metrics of an
// AI-serving product: success rate, latency, cost and quality score.
//
// Given a time series, it detects anomalies with four independent statistical
// tests, forecasts near-term values with confidence bounds, ranks likely root
// causes of a degradation against sibling metrics, and turns ranked causes
// into prioritized remediation recommendations. All detection and forecasting
// uses closed-form statistics rather than trained models, so every result is
// explainable and needs no training data.
//
// Every analysis entry point is a pure, stateless computation over its
// inputs; persistence, scheduling and presentation are external collaborators
// consumed through the MetricStore, IncidentStore and ReportArchive
// interfaces. The package ships reference collaborators backed by Prometheus
// remote read, SQLite and S3-compatible object storage.
package argus
