package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunResultsTotal   = "codefang.run.results.total"
	metricRunAnalyzersTotal = "codefang.run.analyzers.total"
	metricRunTaskDuration   = "codefang.run.task.duration.seconds"
	metricRunCacheHitsTotal = "codefang.run.cache.hits.total"
	metricRunCacheMisses    = "codefang.run.cache.misses.total"
)

// AnalysisMetrics holds OTel instruments for the once-per-Run rollup: unlike
// ExecCoreMetrics, which streams one point per task/analyzer as it
// completes, these instruments are written exactly once, after a Run call
// returns, so dashboards get a single summary point per invocation.
type AnalysisMetrics struct {
	resultsTotal   metric.Int64Counter
	analyzersTotal metric.Int64Counter
	taskDuration   metric.Float64Histogram
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
}

// AnalysisStats summarizes one completed Run call. It is decoupled from
// pkg/execcore types so this package never has to import it.
type AnalysisStats struct {
	Results       int64
	Analyzers     int
	TaskDurations []time.Duration
	CacheHits     int64
	CacheMisses   int64
}

// NewAnalysisMetrics creates the run-summary metric instruments from the
// given meter.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	results, err := mt.Int64Counter(metricRunResultsTotal,
		metric.WithDescription("Total results produced by completed runs"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunResultsTotal, err)
	}

	analyzers, err := mt.Int64Counter(metricRunAnalyzersTotal,
		metric.WithDescription("Total analyzers completed by completed runs"),
		metric.WithUnit("{analyzer}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunAnalyzersTotal, err)
	}

	taskDur, err := mt.Float64Histogram(metricRunTaskDuration,
		metric.WithDescription("Per-task execution duration in seconds, recorded once per Run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunTaskDuration, err)
	}

	hits, err := mt.Int64Counter(metricRunCacheHitsTotal,
		metric.WithDescription("Task cache hits across completed runs"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricRunCacheMisses,
		metric.WithDescription("Task cache misses across completed runs"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunCacheMisses, err)
	}

	return &AnalysisMetrics{
		resultsTotal:   results,
		analyzersTotal: analyzers,
		taskDuration:   taskDur,
		cacheHits:      hits,
		cacheMisses:    misses,
	}, nil
}

// RecordRun records the summary statistics for one completed Run call.
// Safe to call on a nil receiver (no-op).
func (am *AnalysisMetrics) RecordRun(ctx context.Context, stats AnalysisStats) {
	if am == nil {
		return
	}

	am.resultsTotal.Add(ctx, stats.Results)
	am.analyzersTotal.Add(ctx, int64(stats.Analyzers))
	am.cacheHits.Add(ctx, stats.CacheHits)
	am.cacheMisses.Add(ctx, stats.CacheMisses)

	for _, d := range stats.TaskDurations {
		am.taskDuration.Record(ctx, d.Seconds())
	}
}
