package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunMetrics contains the counters reported by every pipeline command
type RunMetrics struct {
	RowsRead         metric.Int64Counter
	RecordsWritten   metric.Int64Counter
	RowsDiscarded    metric.Int64Counter
	ArtifactsWritten metric.Int64Counter
	ChartsSkipped    metric.Int64Counter
	StageDuration    metric.Float64Histogram
}

// NewRunMetrics creates the run instruments on meter
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	m := &RunMetrics{}
	var err error

	m.RowsRead, err = meter.Int64Counter(
		"makertrends_rows_read",
		metric.WithDescription("Raw rows read from input files"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows_read counter: %w", err)
	}

	m.RecordsWritten, err = meter.Int64Counter(
		"makertrends_records_written",
		metric.WithDescription("Rows written to output artifacts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create records_written counter: %w", err)
	}

	m.RowsDiscarded, err = meter.Int64Counter(
		"makertrends_rows_discarded",
		metric.WithDescription("Raw rows excluded during preparation, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows_discarded counter: %w", err)
	}

	m.ArtifactsWritten, err = meter.Int64Counter(
		"makertrends_artifacts_written",
		metric.WithDescription("Output files written"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifacts_written counter: %w", err)
	}

	m.ChartsSkipped, err = meter.Int64Counter(
		"makertrends_charts_skipped",
		metric.WithDescription("Charts not rendered because their input was empty"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create charts_skipped counter: %w", err)
	}

	m.StageDuration, err = meter.Float64Histogram(
		"makertrends_stage_duration_seconds",
		metric.WithDescription("Wall time of each pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage_duration histogram: %w", err)
	}

	return m, nil
}

// ObserveStage records how long a stage ran
func (m *RunMetrics) ObserveStage(ctx context.Context, stage string, started time.Time) {
	m.StageDuration.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

// AddDiscards records discarded rows for one reason
func (m *RunMetrics) AddDiscards(ctx context.Context, reason string, n int) {
	m.RowsDiscarded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// AddArtifact records one written file and its row count
func (m *RunMetrics) AddArtifact(ctx context.Context, kind string, rows int) {
	attrs := metric.WithAttributes(attribute.String("artifact", kind))
	m.ArtifactsWritten.Add(ctx, 1, attrs)
	m.RecordsWritten.Add(ctx, int64(rows), attrs)
}

// WriteMetricsTextfile gathers reg into a node-exporter style textfile
func WriteMetricsTextfile(reg prometheus.Gatherer, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
