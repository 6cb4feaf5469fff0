// Package execcore implements the dependency-resolution and parallel
// execution engine for the codefang analysis core: it resolves a seed set
// of analyzer instances into a dependency graph, drives their tasks through
// an executor, routes results to dependants and to a caller-supplied sink,
// and tolerates individual analyzer failures without stalling the rest.
package execcore

import "errors"

// AnalyzerClass identifies an analyzer's type. It is the unit of dependency
// declaration and cache bucketing.
type AnalyzerClass string

// Section is an opaque context object. The core never inspects its
// contents; it is part of an analyzer instance's scheduling identity and is
// passed through to analyzers unmodified.
type Section struct {
	Name string
}

// FileDict is an opaque mapping from file path to file contents. Like
// Section, it only participates in identity and pass-through; the core
// never reads its values.
type FileDict struct {
	Files map[string]string
}

// TaskArgs is one invocation of an analyzer's Analyze method: positional
// arguments followed by keyword arguments. Two TaskArgs with equal Args and
// Kwargs must produce an equal cache digest.
type TaskArgs struct {
	Args   []any
	Kwargs map[string]any
}

// Result is any value yielded by an analyzer's Analyze call. The core never
// interprets it; it is only delivered to the result sink and to dependants.
type Result any

// Analyzer is the contract an analyzer implementation provides. Instances
// are the unit of scheduling; identity is the triple (Class, Section,
// FileDict) — see identity.go.
type Analyzer interface {
	// Class identifies the analyzer's type for dependency declaration and
	// cache bucketing.
	Class() AnalyzerClass

	// Section returns the opaque section handle that is part of this
	// instance's identity.
	Section() *Section

	// FileDict returns the opaque file-dict handle that is part of this
	// instance's identity.
	FileDict() *FileDict

	// Dependencies returns the analyzer classes this instance declares a
	// dependency on. It is read once at registration time but reflects any
	// mutation the instance's constructor already performed — an
	// instance's effective dependency set is whatever this method returns
	// after construction, not a fixed class-level attribute.
	Dependencies() []AnalyzerClass

	// SetDependencyResults is called by the scheduler, coordinator-only,
	// exactly once per instance, before GenerateTasks, with the complete
	// and unordered result set produced by each declared dependency.
	SetDependencyResults(results map[AnalyzerClass][]Result)

	// GenerateTasks produces the finite (possibly empty) sequence of
	// Analyze invocations for this instance. Called exactly once, after
	// SetDependencyResults, so a dynamic analyzer may size its own task
	// count from dependency output.
	GenerateTasks() ([]TaskArgs, error)

	// Analyze is the pure work function. It returns a finite slice of
	// results for one task's arguments.
	Analyze(task TaskArgs) ([]Result, error)
}

// Registry instantiates analyzer instances by class. It is the seam C2 uses
// to create missing dependency instances discovered while walking the
// dependency graph.
type Registry interface {
	// New constructs a fresh analyzer instance of the given class, scoped
	// to section and fileDict. It returns an error if class is unknown.
	New(class AnalyzerClass, section *Section, fileDict *FileDict) (Analyzer, error)
}

// ErrUnknownClass is returned by a Registry when asked to build an analyzer
// class it does not recognize.
var ErrUnknownClass = errors.New("execcore: unknown analyzer class")

// ResultHandler is the caller-supplied result sink. An error it returns is
// caught and logged as a result-handler failure; it never stops scheduling.
type ResultHandler func(Result) error

// ErrCyclicDependency is returned by InitializeDependencies when the
// declared dependency graph contains a cycle. This is a configuration
// error: fatal, and raised before any task is submitted.
var ErrCyclicDependency = errors.New("execcore: cyclic analyzer dependency")

// ErrExecutorClosed is returned by Executor.Submit once Shutdown has been
// called.
var ErrExecutorClosed = errors.New("execcore: executor is shut down")
