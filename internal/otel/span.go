// Package otel provides span helpers shared by the federation service.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on federation spans
const (
	AttrRepositoryID   = attribute.Key("repository.id")
	AttrRepositoryName = attribute.Key("repository.name")
	AttrRepositoryType = attribute.Key("repository.type")
	AttrSchemaID       = attribute.Key("schema.id")
	AttrResultCount    = attribute.Key("result.count")
	AttrTotalCount     = attribute.Key("result.total_count")
	AttrFailedCount    = attribute.Key("federation.failed_repositories")
)

// RepositoryAttributes returns the attributes identifying a repository
func RepositoryAttributes(id, name, repositoryType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRepositoryID.String(id),
		AttrRepositoryName.String(name),
		AttrRepositoryType.String(repositoryType),
	}
}

// StartSpan starts a new span if the tracer is non-nil, otherwise returns the
// span already in ctx (a no-op span when there is none).
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

// RecordError records err on span and marks it failed. Nil spans and nil
// errors are ignored. The status description stays generic; the error text
// is only kept in the exception event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
