// Package tracer provides a small tracing abstraction for the credential
// services so they can emit spans without importing OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import "context"

// Span represents an active trace span.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Span names.
const (
	SpanMoEIssue           = "credential.moe_issue"
	SpanMoEIssueBatch      = "credential.moe_issue_batch"
	SpanUniversityRegister = "credential.university_register"
	SpanSignGraduates      = "credential.sign_graduates"
	SpanVerify             = "credential.verify"
	SpanListGraduates      = "credential.list_graduates"
)

// Attribute keys. Names and national IDs are never attached.
const (
	AttrUniversity = "credential.university"
	AttrYear       = "credential.year"
	AttrCount      = "credential.count"
	AttrStatus     = "credential.status"
	AttrReason     = "credential.reason"
)
