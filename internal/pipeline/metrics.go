package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the scoring instruments. They report to the global meter
// provider, which is a no-op unless the process installs an exporter.
type Metrics struct {
	submissions metric.Int64Counter
	ignored     metric.Int64Counter
	scores      metric.Float64Histogram
}

// NewMetrics creates instruments on the global meter provider
func NewMetrics() *Metrics {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

// NewMetricsWithProvider creates instruments on mp
func NewMetricsWithProvider(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter("github.com/ppiankov/hazardscore/pipeline")

	submissions, err := meter.Int64Counter("hazardscore_reports_submitted_total",
		metric.WithDescription("Reports accepted, by hazard type"))
	if err != nil {
		slog.Warn("create metric", "name", "hazardscore_reports_submitted_total", "error", err)
	}
	ignored, err := meter.Int64Counter("hazardscore_reports_ignored_total",
		metric.WithDescription("Reports forced to the ignore sentinel, by reason"))
	if err != nil {
		slog.Warn("create metric", "name", "hazardscore_reports_ignored_total", "error", err)
	}
	scores, err := meter.Float64Histogram("hazardscore_report_score",
		metric.WithDescription("Final credibility scores"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0))
	if err != nil {
		slog.Warn("create metric", "name", "hazardscore_report_score", "error", err)
	}

	return &Metrics{submissions: submissions, ignored: ignored, scores: scores}
}

func (m *Metrics) recordSubmission(ctx context.Context, hazardType string) {
	if m.submissions != nil {
		m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("hazard_type", hazardType)))
	}
}

func (m *Metrics) recordIgnored(ctx context.Context, reason string) {
	if m.ignored != nil {
		m.ignored.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m *Metrics) recordScore(ctx context.Context, hazardType string, score float64) {
	if m.scores != nil {
		m.scores.Record(ctx, score, metric.WithAttributes(attribute.String("hazard_type", hazardType)))
	}
}
