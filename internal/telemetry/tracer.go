package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for share operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Share lifecycle keys use the "share." prefix, AWS resource keys use "aws.".
const (
	// ========================================================================
	// Share lifecycle attributes
	// ========================================================================
	AttrShareURI    = "share.uri"
	AttrDatasetURI  = "share.dataset_uri"
	AttrGroupURI    = "share.group_uri"
	AttrHandler     = "share.handler" // approve, revoke, verify, reapply, cleanup
	AttrStatus      = "share.status"
	AttrPrincipalID = "share.principal_id"

	// ========================================================================
	// Share item attributes
	// ========================================================================
	AttrItemURI    = "share.item_uri"
	AttrItemType   = "share.item_type" // Table or Bucket
	AttrItemCount  = "share.item_count"
	AttrItemHealth = "share.item_health"

	// ========================================================================
	// Processor attributes
	// ========================================================================
	AttrProcessor = "processor.type"

	// ========================================================================
	// AWS resource attributes
	// ========================================================================
	AttrAccountID = "aws.account_id"
	AttrRegion    = "aws.region"
	AttrRoleARN   = "aws.role_arn"
	AttrBucket    = "aws.s3.bucket"
	AttrDatabase  = "aws.glue.database"
	AttrTable     = "aws.glue.table"

	// ========================================================================
	// Background task attributes
	// ========================================================================
	AttrTask      = "task.name"
	AttrTaskCount = "task.count"
)

// Span names for share processing runs and background sweeps.
// Format: <component>.<operation>
const (
	SpanRunApprove = "run.approve"
	SpanRunRevoke  = "run.revoke"
	SpanRunVerify  = "run.verify"
	SpanRunReapply = "run.reapply"
	SpanRunCleanup = "run.cleanup"

	SpanTaskVerifier  = "task.verifier"
	SpanTaskReapplier = "task.reapplier"
	SpanTaskExpirer   = "task.expirer"
)

// ============================================================================
// Attribute helpers
// ============================================================================

// ShareURI returns an attribute for the share URI
func ShareURI(uri string) attribute.KeyValue {
	return attribute.String(AttrShareURI, uri)
}

// DatasetURI returns an attribute for the shared dataset URI
func DatasetURI(uri string) attribute.KeyValue {
	return attribute.String(AttrDatasetURI, uri)
}

// GroupURI returns an attribute for the requesting group URI
func GroupURI(uri string) attribute.KeyValue {
	return attribute.String(AttrGroupURI, uri)
}

// Handler returns an attribute for the run handler name
func Handler(name string) attribute.KeyValue {
	return attribute.String(AttrHandler, name)
}

// ShareStatus returns an attribute for the share object status
func ShareStatus(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

// PrincipalID returns an attribute for the consumer principal
func PrincipalID(id string) attribute.KeyValue {
	return attribute.String(AttrPrincipalID, id)
}

// ItemURI returns an attribute for a share item URI
func ItemURI(uri string) attribute.KeyValue {
	return attribute.String(AttrItemURI, uri)
}

// ItemType returns an attribute for a shareable item type
func ItemType(t string) attribute.KeyValue {
	return attribute.String(AttrItemType, t)
}

// ItemCount returns an attribute for the number of items in a run
func ItemCount(n int) attribute.KeyValue {
	return attribute.Int(AttrItemCount, n)
}

// ItemHealth returns an attribute for an item health status
func ItemHealth(health string) attribute.KeyValue {
	return attribute.String(AttrItemHealth, health)
}

// Processor returns an attribute for the processor type handling a pass
func Processor(t string) attribute.KeyValue {
	return attribute.String(AttrProcessor, t)
}

// AccountID returns an attribute for an AWS account ID
func AccountID(id string) attribute.KeyValue {
	return attribute.String(AttrAccountID, id)
}

// Region returns an attribute for an AWS region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// RoleARN returns an attribute for an assumed role ARN
func RoleARN(arn string) attribute.KeyValue {
	return attribute.String(AttrRoleARN, arn)
}

// Bucket returns an attribute for an S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// GlueDatabase returns an attribute for a Glue database name
func GlueDatabase(name string) attribute.KeyValue {
	return attribute.String(AttrDatabase, name)
}

// GlueTable returns an attribute for a Glue table name
func GlueTable(name string) attribute.KeyValue {
	return attribute.String(AttrTable, name)
}

// TaskName returns an attribute for a background sweep name
func TaskName(name string) attribute.KeyValue {
	return attribute.String(AttrTask, name)
}

// TaskCount returns an attribute for the number of shares a sweep touched
func TaskCount(n int) attribute.KeyValue {
	return attribute.Int(AttrTaskCount, n)
}

// ============================================================================
// Span helpers
// ============================================================================

// StartRunSpan starts a span for one share processing run. The span name is
// derived from the handler ("run.approve", "run.verify", ...), so callers
// pass the bare handler verb.
func StartRunSpan(ctx context.Context, handler, shareURI string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Handler(handler),
		ShareURI(shareURI),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "run."+handler, trace.WithAttributes(allAttrs...))
}

// StartProcessorSpan starts a span for one processor pass over a single
// item type within a run.
func StartProcessorSpan(ctx context.Context, operation, itemType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Processor(itemType),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "processor."+operation, trace.WithAttributes(allAttrs...))
}

// StartTaskSpan starts a span for one background sweep pass.
func StartTaskSpan(ctx context.Context, task string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		TaskName(task),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "task."+task, trace.WithAttributes(allAttrs...))
}

// EndSpan records the outcome on a span and ends it. Errors mark the span
// as failed with the error message as the status description.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
