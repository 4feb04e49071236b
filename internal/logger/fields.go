package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// Share lifecycle
	KeyShareURI    = "share_uri"    // Share object identifier
	KeyItemURI     = "item_uri"     // Share item identifier
	KeyItemType    = "item_type"    // Shareable type: Table, Bucket, etc.
	KeyDataset     = "dataset_uri"  // Dataset being shared
	KeyEnvironment = "environment"  // Target environment URI
	KeyGroup       = "group_uri"    // Requesting group
	KeyPrincipal   = "principal_id" // Principal receiving the grants
	KeyAction      = "action"       // State machine action name
	KeyStatus      = "status"       // Object or item status after transition

	// Task execution
	KeyTask      = "task"      // Background task name: verifier, reapplier, expirer
	KeyHandler   = "handler"   // Dispatch handler name: share.approve, share.revoke, ...
	KeyProcessor = "processor" // Processor type handling the items
	KeyLockKey   = "lock_key"  // Advisory lock key
	KeyAttempt   = "attempt"   // Retry attempt counter

	// AWS interaction
	KeyAccountID = "account_id" // Target or source account
	KeyRegion    = "region"     // AWS region
	KeyRoleARN   = "role_arn"   // Assumed role

	// HTTP layer
	KeyClientIP  = "client_ip"  // Client IP address
	KeyRequestID = "request_id" // HTTP request ID
	KeyUsername  = "username"   // Authenticated user
	KeyMethod    = "method"     // HTTP method
	KeyPath      = "path"       // Request path

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyCount      = "count"       // Generic item count
	KeyOperation  = "operation"   // Sub-operation type for complex operations
)

// Err returns a standard error attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ShareAttrs returns the standard attribute set for share-scoped log lines.
func ShareAttrs(shareURI, datasetURI string) []any {
	return []any{
		KeyShareURI, shareURI,
		KeyDataset, datasetURI,
	}
}

// ItemAttrs returns the standard attribute set for item-scoped log lines.
func ItemAttrs(shareURI, itemURI, itemType string) []any {
	return []any{
		KeyShareURI, shareURI,
		KeyItemURI, itemURI,
		KeyItemType, itemType,
	}
}
