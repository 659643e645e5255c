package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader, scopeName string) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Aggregation{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != scopeName {
			continue
		}
		for _, m := range scope.Metrics {
			found[m.Name] = m.Data
		}
	}
	return found
}

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	sync, err := NewSyncMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, sync)

	tasks, err := NewTaskMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, tasks)

	notifications, err := NewNotificationMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, notifications)

	// Should not panic
	sync.RecordRun(context.Background(), time.Second, false)
	sync.RecordItem(context.Background(), ItemUpdated)
	tasks.RecordRun(context.Background(), "sync", OutcomeSuccess, time.Second)
	notifications.RecordCreated(context.Background(), "release", 3)
	notifications.RecordPublishFailure(context.Background(), "release")
}

func TestSyncMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)

	metrics.RecordItem(context.Background(), ItemUpdated)
	metrics.RecordItem(context.Background(), ItemUpdated)
	metrics.RecordItem(context.Background(), ItemFailed)
	metrics.RecordRun(context.Background(), 3*time.Second, true)

	found := collect(t, reader, SyncMetricsMeterName)

	items, ok := found["release_tracker_sync_items_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range items.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, items.DataPoints, 2)

	hist, ok := found["release_tracker_sync_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestTaskMetrics_SkippedRunHasNoDuration(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewTaskMetrics(mp)
	require.NoError(t, err)

	metrics.RecordRun(context.Background(), "auto_release", OutcomeSkipped, 0)

	found := collect(t, reader, TaskMetricsMeterName)
	assert.Contains(t, found, "release_tracker_task_runs_total")
	assert.NotContains(t, found, "release_tracker_task_duration_seconds")
}

func TestNotificationMetrics_ZeroCountIgnored(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewNotificationMetrics(mp)
	require.NoError(t, err)

	metrics.RecordCreated(context.Background(), "release", 0)

	found := collect(t, reader, NotificationMetricsMeterName)
	assert.NotContains(t, found, "release_tracker_notifications_created_total")
}

func TestProvider_Disabled(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	p, err := NewProvider(context.Background(), false, logger)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.MeterProvider())
	assert.NoError(t, p.Shutdown(context.Background()))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProvider_EnabledServesPrometheus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	p, err := NewProvider(context.Background(), true, logger)
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.True(t, p.Enabled())

	metrics, err := NewSyncMetrics(p.MeterProvider())
	require.NoError(t, err)
	metrics.RecordItem(context.Background(), ItemReleased)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "release_tracker_sync_items")
	assert.Contains(t, rec.Body.String(), `result="released"`)
}
