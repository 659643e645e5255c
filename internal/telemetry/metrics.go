// Package telemetry provides OpenTelemetry instrumentation for the release tracker.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the catalog sync meter
	SyncMetricsMeterName = "release_tracker/sync"

	// TaskMetricsMeterName is the name used for the background task meter
	TaskMetricsMeterName = "release_tracker/scheduler"

	// NotificationMetricsMeterName is the name used for the notification meter
	NotificationMetricsMeterName = "release_tracker/notifications"
)

// Task outcomes recorded by TaskMetrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
	OutcomePanic   = "panic"
)

// Sync item results recorded by SyncMetrics.
const (
	ItemUpdated   = "updated"
	ItemUnchanged = "unchanged"
	ItemFailed    = "failed"
	ItemReleased  = "released"
)

// SyncMetrics holds the instruments for catalog sync runs
type SyncMetrics struct {
	runDuration metric.Float64Histogram
	items       metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"release_tracker_sync_duration_seconds",
		metric.WithDescription("Duration of catalog sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600),
	)
	if err != nil {
		return nil, err
	}

	items, err := meter.Int64Counter(
		"release_tracker_sync_items_total",
		metric.WithDescription("Number of games examined by catalog sync, by result"),
		metric.WithUnit("{game}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runDuration: runDuration,
		items:       items,
	}, nil
}

// RecordRun records the duration of one sync run
func (m *SyncMetrics) RecordRun(ctx context.Context, duration time.Duration, stoppedEarly bool) {
	if m == nil || m.runDuration == nil {
		return
	}

	m.runDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Bool("stopped_early", stoppedEarly)))
}

// RecordItem counts one examined game
func (m *SyncMetrics) RecordItem(ctx context.Context, result string) {
	if m == nil || m.items == nil {
		return
	}

	m.items.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// TaskMetrics holds the instruments for scheduled background tasks
type TaskMetrics struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewTaskMetrics creates a new TaskMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewTaskMetrics(provider metric.MeterProvider) (*TaskMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(TaskMetricsMeterName)

	runs, err := meter.Int64Counter(
		"release_tracker_task_runs_total",
		metric.WithDescription("Number of background task runs, by task and outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"release_tracker_task_duration_seconds",
		metric.WithDescription("Duration of background task runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600),
	)
	if err != nil {
		return nil, err
	}

	return &TaskMetrics{
		runs:        runs,
		runDuration: runDuration,
	}, nil
}

// RecordRun records one task run. Skipped runs carry no duration.
func (m *TaskMetrics) RecordRun(ctx context.Context, task, outcome string, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("outcome", outcome),
	)

	m.runs.Add(ctx, 1, attrs)
	if outcome != OutcomeSkipped {
		m.runDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// NotificationMetrics holds the instruments for notification fan-out
type NotificationMetrics struct {
	created         metric.Int64Counter
	publishFailures metric.Int64Counter
}

// NewNotificationMetrics creates a new NotificationMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewNotificationMetrics(provider metric.MeterProvider) (*NotificationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(NotificationMetricsMeterName)

	created, err := meter.Int64Counter(
		"release_tracker_notifications_created_total",
		metric.WithDescription("Number of notification rows created, by type"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	publishFailures, err := meter.Int64Counter(
		"release_tracker_notification_publish_failures_total",
		metric.WithDescription("Number of notification events that could not be published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &NotificationMetrics{
		created:         created,
		publishFailures: publishFailures,
	}, nil
}

// RecordCreated counts notification rows created for one fan-out
func (m *NotificationMetrics) RecordCreated(ctx context.Context, kind string, count int) {
	if m == nil || m.created == nil || count == 0 {
		return
	}

	m.created.Add(ctx, int64(count), metric.WithAttributes(attribute.String("type", kind)))
}

// RecordPublishFailure counts one failed event publish
func (m *NotificationMetrics) RecordPublishFailure(ctx context.Context, kind string) {
	if m == nil || m.publishFailures == nil {
		return
	}

	m.publishFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("type", kind)))
}
