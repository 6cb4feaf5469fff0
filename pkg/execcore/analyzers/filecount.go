// Package analyzers provides small, illustrative execcore.Analyzer
// implementations that exercise the scheduler end to end: a root analyzer
// with no dependencies (FileCount) and a dependent analyzer that consumes
// its output (TokenHistogram).
package analyzers

import (
	"sort"

	"github.com/Sumatoshi-tech/codefang/pkg/execcore"
)

// FileCountClass is the AnalyzerClass FileCount registers under.
const FileCountClass execcore.AnalyzerClass = "file_count"

// FileCountResult is one FileCount task's output: a single file's path and
// byte length. Grounded on coala's CustomTasksBear, which generates one task
// per file and lets Analyze run them independently across the worker pool.
type FileCountResult struct {
	Path  string
	Bytes int
}

// FileCount is a root analyzer (no declared dependencies): it generates one
// task per file in its FileDict and reports each file's byte length.
type FileCount struct {
	section *execcore.Section
	files   *execcore.FileDict
}

// NewFileCount constructs a FileCount instance scoped to section and files.
func NewFileCount(section *execcore.Section, files *execcore.FileDict) *FileCount {
	return &FileCount{section: section, files: files}
}

func (a *FileCount) Class() execcore.AnalyzerClass { return FileCountClass }
func (a *FileCount) Section() *execcore.Section    { return a.section }
func (a *FileCount) FileDict() *execcore.FileDict  { return a.files }

func (a *FileCount) Dependencies() []execcore.AnalyzerClass { return nil }

// SetDependencyResults is a no-op: FileCount has no declared dependencies,
// so the scheduler calls it with an empty map.
func (a *FileCount) SetDependencyResults(map[execcore.AnalyzerClass][]execcore.Result) {}

// GenerateTasks produces one task per file path, sorted for deterministic
// ordering across runs (FileDict's underlying map has none).
func (a *FileCount) GenerateTasks() ([]execcore.TaskArgs, error) {
	paths := make([]string, 0, len(a.files.Files))
	for path := range a.files.Files {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	tasks := make([]execcore.TaskArgs, 0, len(paths))
	for _, path := range paths {
		tasks = append(tasks, execcore.TaskArgs{Args: []any{path}})
	}

	return tasks, nil
}

// Analyze counts the bytes of the one file this task was given.
func (a *FileCount) Analyze(task execcore.TaskArgs) ([]execcore.Result, error) {
	path, _ := task.Args[0].(string)
	content := a.files.Files[path]

	return []execcore.Result{FileCountResult{Path: path, Bytes: len(content)}}, nil
}
