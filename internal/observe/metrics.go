// Package observe records pipeline metrics through OpenTelemetry and exposes
// them for Prometheus scraping.
//
// Tests should build [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider]; [Noop] discards everything.
package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "theranotes-go"

// Metrics holds the instruments shared by the services. All fields are safe
// for concurrent use.
type Metrics struct {
	// StageDuration is the latency of one pipeline stage call. Attributes:
	// stage, outcome (ok|error).
	StageDuration metric.Float64Histogram

	// StageFailures counts failed stage calls. Attributes: stage, status.
	StageFailures metric.Int64Counter

	// PipelineRuns counts generate-note runs. Attribute: outcome.
	PipelineRuns metric.Int64Counter

	// HTTPRequestDuration is the server-side request latency. Attributes:
	// method, route, status.
	HTTPRequestDuration metric.Float64Histogram
}

// stageBuckets are in seconds; transcription can take minutes.
var stageBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("theranotes.stage.duration",
		metric.WithDescription("Latency of pipeline stage calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageFailures, err = m.Int64Counter("theranotes.stage.failures",
		metric.WithDescription("Failed pipeline stage calls by stage and status."),
	); err != nil {
		return nil, err
	}
	if met.PipelineRuns, err = m.Int64Counter("theranotes.pipeline.runs",
		metric.WithDescription("Full pipeline runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("theranotes.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Noop returns metrics that record nothing.
func Noop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordStage records one stage call. A zero status means success.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration, status int) {
	outcome := "ok"
	if status != 0 {
		outcome = "error"
		m.StageFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", strconv.Itoa(status)),
		))
	}
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordPipeline(ctx context.Context, outcome string) {
	m.PipelineRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
