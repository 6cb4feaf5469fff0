package execcore

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/codefang/pkg/framework"
)

// RunParams holds the raw values a CLI or config file
// supplies for one Run call, generalized from
// pkg/framework/config.go's ConfigParams/BuildConfigFromParams shape.
type RunParams struct {
	Workers        int
	ExecutorKind   string // "parallel" | "serial"
	CacheEnabled   bool
	CacheMaxSize   string // humanize size string, e.g. "256MB"; informational only
}

// BuildRunConfig validates raw params and assembles the pieces Run needs:
// an Executor (nil means "let Run own a ParallelExecutor"), and a Cache
// (nil means caching disabled). The CacheMaxSize budget is parsed for
// validation and operator visibility only — the in-memory Cache itself
// never prunes, per spec.md §4.5.
func BuildRunConfig(params RunParams) (Executor, *Cache, error) {
	if params.CacheMaxSize != "" {
		if _, err := humanize.ParseBytes(params.CacheMaxSize); err != nil {
			return nil, nil, fmt.Errorf("%w for cache-max-size: %s", framework.ErrInvalidSizeFormat, params.CacheMaxSize)
		}
	}

	var executor Executor

	switch params.ExecutorKind {
	case "", "parallel":
		executor = nil // Run creates and owns a ParallelExecutor sized by Workers.
	case "serial":
		executor = NewSerialExecutor()
	default:
		return nil, nil, fmt.Errorf("execcore: unknown executor kind %q", params.ExecutorKind)
	}

	var cache *Cache
	if params.CacheEnabled {
		cache = NewCache()
	}

	return executor, cache, nil
}
