package types

import "time"

// NotificationRequest is the unit of work submitted to the async delivery
// channel. It carries everything a delivery worker needs to render and send
// one email: recipients, template name, subject, and template context.
//
// The same envelope is used by both the in-process channel and the SQS
// channel, so it must remain JSON-serializable.
type NotificationRequest struct {
	ID         string         `json:"id"`
	Category   Category       `json:"category"`
	Recipients []string       `json:"recipients"`
	Cc         string         `json:"cc,omitempty"`
	Template   string         `json:"template"`
	Subject    string         `json:"subject"`
	Context    map[string]any `json:"context,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// Outcome is the typed result of a dispatch or delivery attempt. Reason is
// empty for StatusSent and describes the skip or failure otherwise.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Outcome reason constants shared between the dispatcher and the worker.
const (
	ReasonPreferences   = "preferences"
	ReasonNoRecipients  = "no eligible recipients"
	ReasonNotConfigured = "not configured"
	ReasonQueueFull     = "queue unavailable"
)

// Sent returns a successful outcome.
func Sent() Outcome { return Outcome{Status: StatusSent} }

// Failed returns a failed outcome with the given reason.
func Failed(reason string) Outcome { return Outcome{Status: StatusFailed, Reason: reason} }

// Skipped returns a skipped outcome with the given reason.
func Skipped(reason string) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }

// ResponseMeta contains non-blocking metadata returned with API responses,
// such as a warning that a confirmation email could not be queued.
type ResponseMeta struct {
	Warnings []string `json:"warnings,omitempty"`
}

// EmailIdentity is the sender identity attached to outbound mail.
type EmailIdentity struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// SendInput is the provider-agnostic payload handed to an EmailProvider.
type SendInput struct {
	To          []string      `json:"to"`
	Cc          string        `json:"cc,omitempty"`
	From        EmailIdentity `json:"from"`
	Subject     string        `json:"subject"`
	BodyHTML    string        `json:"body_html"`
	ReferenceID string        `json:"reference_id,omitempty"`
}
