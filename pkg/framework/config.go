// Package framework provides ambient runtime configuration and profiling
// helpers shared by the execution core and its CLI entry point.
package framework

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel errors for configuration.
var (
	ErrInvalidSizeFormat = errors.New("invalid size format")
	ErrInvalidGCPercent  = errors.New("invalid GC percent")
)

// maxInt64 is the largest value an int64 can hold, used to clamp uint64
// conversions that would otherwise overflow.
const maxInt64 = int64(^uint64(0) >> 1)

// RunConfig holds runtime tuning parameters that apply regardless of which
// executor or cache the execution core is configured with.
type RunConfig struct {
	Workers      int
	GCPercent    int
	BallastSize  int64
	CacheMaxSize int64
}

// ConfigParams holds raw CLI parameter values for building a RunConfig.
// Size strings use humanize format (e.g. "256MB", "1GiB").
type ConfigParams struct {
	Workers      int
	CacheMaxSize string
	GCPercent    int
	BallastSize  string
}

// BuildConfigFromParams builds a RunConfig from raw CLI parameters.
func BuildConfigFromParams(params ConfigParams) (RunConfig, error) {
	config := RunConfig{Workers: params.Workers}

	if params.CacheMaxSize != "" {
		size, parseErr := humanize.ParseBytes(params.CacheMaxSize)
		if parseErr != nil {
			return RunConfig{}, fmt.Errorf("%w for cache-max-size: %s", ErrInvalidSizeFormat, params.CacheMaxSize)
		}

		config.CacheMaxSize = SafeInt64(size)
	}

	tuningErr := applyRuntimeTuningParams(&config, params.GCPercent, params.BallastSize)
	if tuningErr != nil {
		return RunConfig{}, tuningErr
	}

	return config, nil
}

func applyRuntimeTuningParams(config *RunConfig, gcPercent int, ballastSize string) error {
	if gcPercent < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidGCPercent, gcPercent)
	}

	config.GCPercent = gcPercent

	ballastBytes, err := ParseOptionalSize(ballastSize)
	if err != nil {
		return err
	}

	config.BallastSize = ballastBytes

	return nil
}

// ParseOptionalSize parses a human-readable size string, returning 0 for empty or "0".
func ParseOptionalSize(sizeValue string) (int64, error) {
	trimmed := strings.TrimSpace(sizeValue)
	if trimmed == "" || trimmed == "0" {
		return 0, nil
	}

	parsed, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w for ballast-size: %s", ErrInvalidSizeFormat, sizeValue)
	}

	return SafeInt64(parsed), nil
}

// SafeInt64 converts uint64 to int64, clamping to maxInt64 to prevent overflow.
func SafeInt64(v uint64) int64 {
	if v > uint64(maxInt64) {
		return maxInt64
	}

	return int64(v)
}
