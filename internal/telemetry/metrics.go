package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/stacklok/toolhive-assetsync/sync"
)

// SyncMetrics holds the OpenTelemetry instruments for sync operations
type SyncMetrics struct {
	operationDuration metric.Float64Histogram
	receivedBytes     metric.Int64Counter
	updateChecks      metric.Int64Counter
	workingCopies     metric.Int64Gauge
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	operationDuration, err := meter.Float64Histogram(
		"thv_assetsync_operation_duration_seconds",
		metric.WithDescription("Duration of download and update operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900),
	)
	if err != nil {
		return nil, err
	}

	receivedBytes, err := meter.Int64Counter(
		"thv_assetsync_received_bytes_total",
		metric.WithDescription("Pack bytes received from the remote"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	updateChecks, err := meter.Int64Counter(
		"thv_assetsync_update_checks_total",
		metric.WithDescription("Number of update checks against the remote"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	workingCopies, err := meter.Int64Gauge(
		"thv_assetsync_working_copies",
		metric.WithDescription("Number of working copies on disk"),
		metric.WithUnit("{working_copy}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		operationDuration: operationDuration,
		receivedBytes:     receivedBytes,
		updateChecks:      updateChecks,
		workingCopies:     workingCopies,
	}, nil
}

// RecordOperation records the duration and outcome of a download or update
func (m *SyncMetrics) RecordOperation(ctx context.Context, operation, resource, outcome string, duration time.Duration) {
	if m == nil || m.operationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("resource", resource),
		attribute.String("outcome", outcome),
	}

	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordReceivedBytes adds the pack bytes received by one transfer
func (m *SyncMetrics) RecordReceivedBytes(ctx context.Context, operation, resource string, bytes uint64) {
	if m == nil || m.receivedBytes == nil || bytes == 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("resource", resource),
	}

	m.receivedBytes.Add(ctx, int64(bytes), metric.WithAttributes(attrs...))
}

// RecordUpdateCheck counts one update check and whether it found an update
func (m *SyncMetrics) RecordUpdateCheck(ctx context.Context, resource string, updateAvailable bool) {
	if m == nil || m.updateChecks == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("resource", resource),
		attribute.Bool("update_available", updateAvailable),
	}

	m.updateChecks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWorkingCopies records the current number of working copies
func (m *SyncMetrics) RecordWorkingCopies(ctx context.Context, count int) {
	if m == nil || m.workingCopies == nil {
		return
	}
	m.workingCopies.Record(ctx, int64(count))
}
