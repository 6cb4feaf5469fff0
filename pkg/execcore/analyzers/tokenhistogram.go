package analyzers

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	golang "github.com/alexaandru/go-sitter-forest/go"

	"github.com/Sumatoshi-tech/codefang/pkg/execcore"
)

// TokenHistogramClass is the AnalyzerClass TokenHistogram registers under.
const TokenHistogramClass execcore.AnalyzerClass = "token_histogram"

// TokenHistogramResult is the named-node-type histogram for one Go source
// file, plus the byte count FileCount already measured for it.
type TokenHistogramResult struct {
	Path   string
	Bytes  int
	Counts map[string]int
}

var goLanguage *sitter.Language

func init() {
	goLanguage = sitter.NewLanguage(golang.GetLanguage())
}

// TokenHistogram depends on FileCountClass: it only parses files FileCount
// has already sized, and each of its tasks corresponds 1:1 to one FileCount
// result rather than re-walking the FileDict itself. This is the dynamic
// task-count shape spec.md's DESIGN NOTES calls out — GenerateTasks runs
// after SetDependencyResults and can size itself from dependency output.
type TokenHistogram struct {
	section  *execcore.Section
	files    *execcore.FileDict
	upstream []FileCountResult
}

// NewTokenHistogram constructs a TokenHistogram instance scoped to section
// and files.
func NewTokenHistogram(section *execcore.Section, files *execcore.FileDict) *TokenHistogram {
	return &TokenHistogram{section: section, files: files}
}

func (a *TokenHistogram) Class() execcore.AnalyzerClass { return TokenHistogramClass }
func (a *TokenHistogram) Section() *execcore.Section    { return a.section }
func (a *TokenHistogram) FileDict() *execcore.FileDict  { return a.files }

func (a *TokenHistogram) Dependencies() []execcore.AnalyzerClass {
	return []execcore.AnalyzerClass{FileCountClass}
}

func (a *TokenHistogram) SetDependencyResults(results map[execcore.AnalyzerClass][]execcore.Result) {
	for _, r := range results[FileCountClass] {
		if fc, ok := r.(FileCountResult); ok {
			a.upstream = append(a.upstream, fc)
		}
	}
}

// GenerateTasks produces one task per upstream FileCount result, sorted by
// path for deterministic ordering.
func (a *TokenHistogram) GenerateTasks() ([]execcore.TaskArgs, error) {
	sorted := append([]FileCountResult{}, a.upstream...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	tasks := make([]execcore.TaskArgs, 0, len(sorted))
	for _, fc := range sorted {
		tasks = append(tasks, execcore.TaskArgs{Args: []any{fc.Path, fc.Bytes}})
	}

	return tasks, nil
}

// Analyze parses one file with the Go tree-sitter grammar and counts named
// node types, the same parser-pool-free usage DSLParser.Parse demonstrates
// for a single one-shot parse.
func (a *TokenHistogram) Analyze(task execcore.TaskArgs) ([]execcore.Result, error) {
	path, _ := task.Args[0].(string)
	byteLen, _ := task.Args[1].(int)

	content := a.files.Files[path]

	tsParser := sitter.NewParser()
	tsParser.SetLanguage(goLanguage)

	tree, err := tsParser.ParseString(context.Background(), nil, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("token histogram: parse %s: %w", path, err)
	}
	defer tree.Close()

	counts := make(map[string]int)
	walkNamed(tree.RootNode(), counts)

	return []execcore.Result{TokenHistogramResult{Path: path, Bytes: byteLen, Counts: counts}}, nil
}

func walkNamed(n sitter.Node, counts map[string]int) {
	if n.IsNull() {
		return
	}

	if n.IsNamed() {
		counts[n.Type()]++
	}

	childCount := int(n.NamedChildCount())
	for i := range childCount {
		walkNamed(n.NamedChild(uint32(i)), counts)
	}
}
