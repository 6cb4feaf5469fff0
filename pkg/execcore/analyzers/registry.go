package analyzers

import (
	"fmt"

	"github.com/Sumatoshi-tech/codefang/pkg/execcore"
)

// Registry constructs FileCount and TokenHistogram instances by class. It
// is the seam execcore.InitializeDependencies uses to create missing
// dependency instances discovered while walking a seed set's declared
// dependencies — mirrored on internal/analyzers/analyze/registry.go's
// class-keyed constructor-lookup shape.
type Registry struct{}

// NewRegistry returns a Registry for the two illustrative analyzers this
// package ships.
func NewRegistry() Registry { return Registry{} }

func (Registry) New(class execcore.AnalyzerClass, section *execcore.Section, files *execcore.FileDict) (execcore.Analyzer, error) {
	switch class {
	case FileCountClass:
		return NewFileCount(section, files), nil
	case TokenHistogramClass:
		return NewTokenHistogram(section, files), nil
	default:
		return nil, fmt.Errorf("%w: %s", execcore.ErrUnknownClass, class)
	}
}
