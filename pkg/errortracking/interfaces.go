package errortracking

import (
	"context"
)

// Severity represents the severity level of a captured event.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
)

// Provider defines the interface for error tracking providers.
type Provider interface {
	// CaptureError captures an error with severity and extra context.
	CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{})

	// CaptureMessage captures a plain message with severity and extra context.
	CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{})

	// CapturePanic captures a recovered panic with its stack trace.
	CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{})

	// Flush waits up to timeout seconds for pending events to be sent.
	Flush(timeout int) bool

	// Close closes the provider and releases resources.
	Close() error
}
