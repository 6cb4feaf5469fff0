package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// probeTraceID is a fixed, valid trace ID used to drive sampler decisions
// from the black-box test package, where ratio-based samplers need some
// concrete ID to hash against.
var probeTraceID = trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

// ProbeBuildResource exposes buildResource to the observability_test package.
func ProbeBuildResource(cfg Config) (*resource.Resource, error) {
	return buildResource(cfg)
}

// ProbeSamplerSpan reports whether the sampler selected for cfg would record
// a root span (no parent context) with probeTraceID.
func ProbeSamplerSpan(cfg Config) bool {
	sampler := selectSampler(cfg)

	result := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       probeTraceID,
		Name:          "probe",
		Kind:          trace.SpanKindInternal,
	})

	return result.Decision != sdktrace.Drop
}
