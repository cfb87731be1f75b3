// Package otel provides OpenTelemetry instrumentation utilities for the asset sync engine.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// Common attribute keys for business context used across the application.
// Using shared keys ensures consistent attribute naming in traces.
const (
	AttrOperation = attribute.Key("assetsync.operation")
	AttrResource  = attribute.Key("assetsync.resource")
	AttrLocale    = attribute.Key("assetsync.locale")
	AttrType      = attribute.Key("assetsync.type")
	AttrRevision  = attribute.Key("assetsync.revision")
	AttrOutcome   = attribute.Key("assetsync.outcome")
	AttrErrorCode = attribute.Key("assetsync.error_code")

	// Resource attributes identifying the bundle repository and data directory a process serves
	AttrRemote  = attribute.Key("assetsync.remote")
	AttrDataDir = attribute.Key("assetsync.data_dir")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// The status description is the error code name only; paths and URLs stay in the exception event.
// It safely handles nil spans and nil errors.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, syncerr.CodeOf(err).String())
	}
}
