package execcore

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codefang/pkg/observability"
)

// These messages are stable log prefixes relied on by anything that greps
// the core's error output; keep them verbatim.
const (
	msgAnalyzerFailure = "An exception was thrown during bear execution."
	msgHandlerFailure  = "An exception was thrown during result-handling."
)

const spanRunName = "codefang.execcore.run"

// RunOptions configures a Run call. All fields are optional; the zero value
// runs with no cache, a freshly-owned ParallelExecutor sized to GOMAXPROCS,
// and the default slog/otel providers.
type RunOptions struct {
	// Cache is the optional C5 cache. Nil means no caching.
	Cache *Cache

	// Executor is an optional pre-built C6 executor. When set, the caller
	// owns its shutdown and Run never calls Shutdown on it. When nil, Run
	// creates a ParallelExecutor sized by Workers and shuts it down itself,
	// even on error.
	Executor Executor

	// Workers sizes the owned ParallelExecutor when Executor is nil. A
	// value <= 0 defaults to runtime.GOMAXPROCS(0).
	Workers int

	// Logger receives the two stable ERROR-level messages; Run emits no
	// other log records. Nil uses slog.Default().
	Logger *slog.Logger

	// Tracer wraps Run in one codefang.execcore.run span; analyzers and their
	// task batches get no spans of their own. Nil uses
	// otel.Tracer("codefang").
	Tracer trace.Tracer

	// Metrics records task/analyzer counters and durations. Nil disables
	// metrics recording (every method on *observability.ExecCoreMetrics is
	// nil-receiver safe).
	Metrics *observability.ExecCoreMetrics

	// AnalysisMetrics records a once-per-call summary (results, analyzers,
	// task durations, cache hits/misses) after Run returns successfully.
	// Nil disables it (every method on *observability.AnalysisMetrics is
	// nil-receiver safe).
	AnalysisMetrics *observability.AnalysisMetrics
}

// completion is one task's outcome, reported by a per-future forwarder
// goroutine into the coordinator's single completions channel. This is the
// fan-in idiom Go code uses to implement "wait for any future completes":
// rather than a reflect-based select over an arbitrary future list, each
// future gets its own forwarder, and the coordinator reads one shared
// channel.
type completion struct {
	analyzer Analyzer
	results  []Result
	err      error
	cacheKey *cacheKey
	cacheHit bool
	duration time.Duration
}

type cacheKey struct {
	class  AnalyzerClass
	digest Digest
}

// Run is C4: it resolves seeds into a dependency-ordered execution plan via
// InitializeDependencies, then submits and drains tasks until every
// analyzer has either completed or been dropped by a failure cascade. It
// returns every delivered result, in completion order.
//
// Run is reentrant-safe across independent calls but not meant to be
// called concurrently on the same seeds/executor/cache from two goroutines
// at once: the coordinator loop below is, per the spec's concurrency
// model, the sole mutator of scheduling state for this run.
func Run(ctx context.Context, registry Registry, seeds []Analyzer, onResult ResultHandler, opts RunOptions) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("codefang")
	}

	ctx, span := tracer.Start(ctx, spanRunName)
	defer span.End()

	tracker, ready, err := InitializeDependencies(seeds, registry)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeValidation, observability.ErrSourceServer)

		return nil, err
	}

	executor := opts.Executor
	ownExecutor := executor == nil

	if ownExecutor {
		workers := opts.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}

		executor = NewParallelExecutor(workers)
	}

	if ownExecutor {
		defer executor.Shutdown()
	}

	co := &coordinator{
		ctx:             ctx,
		tracker:         tracker,
		executor:        executor,
		cache:           opts.Cache,
		onResult:        onResult,
		logger:          logger,
		tracer:          tracer,
		metrics:         opts.Metrics,
		analysisMetrics: opts.AnalysisMetrics,
		completions:     make(chan completion, 64),
		outstanding:     make(map[Analyzer]int),
		pending:         make(map[Analyzer][]Result),
		depResults:      make(map[Analyzer]map[AnalyzerClass][]Result),
		failed:          make(map[Analyzer]bool),
	}

	results, runErr := co.run(ready)
	if runErr != nil {
		observability.RecordSpanError(span, runErr, observability.ErrTypeDependencyUnavailable, observability.ErrSourceDependency)

		return nil, runErr
	}

	co.analysisMetrics.RecordRun(ctx, observability.AnalysisStats{
		Results:       int64(len(results)),
		Analyzers:     co.analyzersDone,
		TaskDurations: co.taskDurations,
		CacheHits:     co.cacheHits,
		CacheMisses:   co.cacheMisses,
	})

	return results, nil
}

// coordinator holds all scheduling state for one Run call. Every field
// below is read and written only by the single goroutine running run(); it
// is not a concurrency-safe type on its own, by design — see spec.md §5.
type coordinator struct {
	ctx             context.Context
	tracker         *Tracker
	executor        Executor
	cache           *Cache
	onResult        ResultHandler
	logger          *slog.Logger
	tracer          trace.Tracer
	metrics         *observability.ExecCoreMetrics
	analysisMetrics *observability.AnalysisMetrics

	completions chan completion

	outstanding map[Analyzer]int
	pending     map[Analyzer][]Result
	depResults  map[Analyzer]map[AnalyzerClass][]Result
	failed      map[Analyzer]bool

	inFlight int
	allResults []Result

	// Aggregate stats for the once-per-Run AnalysisMetrics summary.
	analyzersDone int
	taskDurations []time.Duration
	cacheHits     int64
	cacheMisses   int64
}

func (co *coordinator) run(ready []Analyzer) ([]Result, error) {
	queue := append([]Analyzer{}, ready...)

	for len(queue) > 0 || co.inFlight > 0 {
		co.metrics.SetReadyQueueDepth(len(queue))

		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]

			newlyReady, err := co.dispatch(next)
			if err != nil {
				return nil, err
			}

			queue = append(queue, newlyReady...)
		}

		if co.inFlight == 0 {
			break
		}

		c := <-co.completions
		co.inFlight--

		newlyReady := co.handleCompletion(c)
		queue = append(queue, newlyReady...)
	}

	return co.allResults, nil
}

// dispatch populates an analyzer's dependency results, generates its
// tasks, and submits them. It returns any analyzers that became ready as a
// direct, synchronous consequence (the zero-task case resolves
// immediately, without going through the completions channel).
func (co *coordinator) dispatch(a Analyzer) ([]Analyzer, error) {
	a.SetDependencyResults(co.depResults[a])

	tasks, genErr := safeGenerateTasks(a)
	if genErr != nil {
		co.logger.ErrorContext(co.ctx, msgAnalyzerFailure, "analyzer", identityOf(a).String(), "error", genErr)
		co.metrics.RecordAnalyzer(co.ctx, observability.OutcomeError)

		return co.failAnalyzer(a), nil
	}

	if len(tasks) == 0 {
		return co.finishAnalyzer(a), nil
	}

	co.outstanding[a] = len(tasks)

	for _, task := range tasks {
		if err := co.submitTask(a, task); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func (co *coordinator) submitTask(a Analyzer, task TaskArgs) error {
	var key *cacheKey

	if co.cache != nil {
		if digest, digestErr := DigestTask(task); digestErr == nil {
			key = &cacheKey{class: a.Class(), digest: digest}

			if cached, hit := co.cache.Get(key.class, key.digest); hit {
				co.forward(a, NewImmediateFuture(cached, nil), key, true, time.Now())

				return nil
			}
		}
	}

	start := time.Now()

	future, err := co.executor.Submit(func() ([]Result, error) {
		return safeAnalyze(a, task)
	})
	if err != nil {
		return err
	}

	co.forward(a, future, key, false, start)

	return nil
}

// forward spawns the per-future goroutine that awaits one task and reports
// its outcome on the shared completions channel.
func (co *coordinator) forward(a Analyzer, future Future, key *cacheKey, cacheHit bool, start time.Time) {
	co.inFlight++

	go func() {
		results, err := future.Await()
		co.completions <- completion{
			analyzer: a,
			results:  results,
			err:      err,
			cacheKey: key,
			cacheHit: cacheHit,
			duration: time.Since(start),
		}
	}()
}

func (co *coordinator) handleCompletion(c completion) []Analyzer {
	a := c.analyzer

	if co.failed[a] {
		return nil
	}

	if c.err != nil {
		co.logger.ErrorContext(co.ctx, msgAnalyzerFailure, "analyzer", identityOf(a).String(), "error", c.err)
		co.metrics.RecordTask(co.ctx, string(a.Class()), observability.OutcomeError, c.duration.Seconds())
		co.metrics.RecordAnalyzer(co.ctx, observability.OutcomeError)

		return co.failAnalyzer(a)
	}

	outcome := observability.OutcomeOK
	if c.cacheHit {
		outcome = observability.OutcomeCacheHit
	}

	co.metrics.RecordTask(co.ctx, string(a.Class()), outcome, c.duration.Seconds())
	co.taskDurations = append(co.taskDurations, c.duration)

	if c.cacheKey != nil {
		if c.cacheHit {
			co.cacheHits++
		} else {
			co.cacheMisses++
		}
	}

	for _, r := range c.results {
		if handlerErr := co.safeOnResult(r); handlerErr != nil {
			co.logger.ErrorContext(co.ctx, msgHandlerFailure, "error", handlerErr)
		}

		co.pending[a] = append(co.pending[a], r)
		co.allResults = append(co.allResults, r)
	}

	if c.cacheKey != nil && !c.cacheHit {
		co.cache.Put(c.cacheKey.class, c.cacheKey.digest, c.results)
	}

	co.outstanding[a]--
	if co.outstanding[a] == 0 {
		return co.finishAnalyzer(a)
	}

	return nil
}

func (co *coordinator) safeOnResult(r Result) (err error) {
	if co.onResult == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()

	return co.onResult(r)
}

// finishAnalyzer propagates an analyzer's complete result set to every
// dependant's accumulated dependency_results, resolves it in the tracker,
// and returns the dependants that are now ready.
func (co *coordinator) finishAnalyzer(a Analyzer) []Analyzer {
	results := co.pending[a]

	for _, dependant := range co.tracker.GetDependants(a) {
		if co.depResults[dependant] == nil {
			co.depResults[dependant] = make(map[AnalyzerClass][]Result)
		}

		co.depResults[dependant][a.Class()] = results
	}

	newlyReady := co.tracker.Resolve(a)

	delete(co.pending, a)
	delete(co.outstanding, a)

	co.metrics.RecordAnalyzer(co.ctx, observability.OutcomeOK)
	co.analyzersDone++

	return newlyReady
}

// failAnalyzer removes a and its transitive dependants from scheduling,
// discarding any results it had already produced.
func (co *coordinator) failAnalyzer(a Analyzer) []Analyzer {
	co.failed[a] = true

	for _, d := range co.tracker.RemoveSubtree(a) {
		co.failed[d] = true
		delete(co.pending, d)
		delete(co.outstanding, d)
		delete(co.depResults, d)
	}

	delete(co.pending, a)
	delete(co.outstanding, a)
	delete(co.depResults, a)

	return nil
}

func safeGenerateTasks(a Analyzer) (tasks []TaskArgs, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()

	return a.GenerateTasks()
}

// safeAnalyze runs an analyzer's task and turns a panic into an error, the
// same translation safeGenerateTasks applies to task generation. Analyze
// runs on an executor worker goroutine; an unrecovered panic there would
// crash the process instead of failing just the owning analyzer.
func safeAnalyze(a Analyzer, task TaskArgs) (results []Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()

	return a.Analyze(task)
}

func recoveredError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("execcore: recovered panic: %w", err)
	}

	return fmt.Errorf("execcore: recovered panic: %v", rec)
}
