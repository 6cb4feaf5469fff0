package observability

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricExecCoreTasksTotal      = "codefang.execcore.tasks.total"
	metricExecCoreAnalyzersTotal  = "codefang.execcore.analyzers.total"
	metricExecCoreTaskDuration    = "codefang.execcore.task.duration.seconds"
	metricExecCoreReadyQueueDepth = "codefang.execcore.ready.queue.depth"

	attrClass   = "class"
	attrOutcome = "outcome"

	// OutcomeOK marks a task or analyzer that completed successfully.
	OutcomeOK = "ok"
	// OutcomeError marks a task or analyzer that failed.
	OutcomeError = "error"
	// OutcomeCacheHit marks a task satisfied from the cache without running Analyze.
	OutcomeCacheHit = "cache_hit"
)

// ExecCoreMetrics holds the OTel instruments for the execution core's
// scheduler (C4): per-task and per-analyzer outcome counters, a task
// duration histogram, and a ready-queue-depth gauge sampled from an atomic
// value the runner updates each submit pass — registered once with an
// observe callback, the same shape SchedulerMetrics uses for Go runtime
// gauges.
type ExecCoreMetrics struct {
	tasksTotal          metric.Int64Counter
	analyzersTotal      metric.Int64Counter
	taskDuration        metric.Float64Histogram
	readyQueueDepthGauge metric.Int64ObservableGauge
	readyQueueDepth     atomic.Int64
}

// NewExecCoreMetrics creates the execution core's metric instruments from
// the given meter.
func NewExecCoreMetrics(mt metric.Meter) (*ExecCoreMetrics, error) {
	tasksTotal, err := mt.Int64Counter(metricExecCoreTasksTotal,
		metric.WithDescription("Total analyzer tasks completed, by class and outcome"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExecCoreTasksTotal, err)
	}

	analyzersTotal, err := mt.Int64Counter(metricExecCoreAnalyzersTotal,
		metric.WithDescription("Total analyzers completed, by outcome"),
		metric.WithUnit("{analyzer}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExecCoreAnalyzersTotal, err)
	}

	taskDuration, err := mt.Float64Histogram(metricExecCoreTaskDuration,
		metric.WithDescription("Per-task execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExecCoreTaskDuration, err)
	}

	ecm := &ExecCoreMetrics{
		tasksTotal:     tasksTotal,
		analyzersTotal: analyzersTotal,
		taskDuration:   taskDuration,
	}

	readyQueueDepth, err := mt.Int64ObservableGauge(metricExecCoreReadyQueueDepth,
		metric.WithDescription("Analyzers currently ready but not yet dispatched"),
		metric.WithUnit("{analyzer}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExecCoreReadyQueueDepth, err)
	}

	ecm.readyQueueDepthGauge = readyQueueDepth

	_, err = mt.RegisterCallback(ecm.observeReadyQueueDepth, readyQueueDepth)
	if err != nil {
		return nil, fmt.Errorf("register execcore ready queue callback: %w", err)
	}

	return ecm, nil
}

func (ecm *ExecCoreMetrics) observeReadyQueueDepth(_ context.Context, obs metric.Observer) error {
	obs.ObserveInt64(ecm.readyQueueDepthGauge, ecm.readyQueueDepth.Load())

	return nil
}

// RecordTask records one completed task's class, outcome, and duration in
// seconds. Safe to call on a nil receiver (no-op).
func (ecm *ExecCoreMetrics) RecordTask(ctx context.Context, class, outcome string, durationSeconds float64) {
	if ecm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrClass, class),
		attribute.String(attrOutcome, outcome),
	)

	ecm.tasksTotal.Add(ctx, 1, attrs)
	ecm.taskDuration.Record(ctx, durationSeconds, attrs)
}

// RecordAnalyzer records one completed analyzer's outcome. Safe to call on
// a nil receiver (no-op).
func (ecm *ExecCoreMetrics) RecordAnalyzer(ctx context.Context, outcome string) {
	if ecm == nil {
		return
	}

	ecm.analyzersTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// SetReadyQueueDepth updates the sampled ready-queue depth. Safe to call on
// a nil receiver (no-op).
func (ecm *ExecCoreMetrics) SetReadyQueueDepth(depth int) {
	if ecm == nil {
		return
	}

	ecm.readyQueueDepth.Store(int64(depth))
}
