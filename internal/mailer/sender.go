// Package mailer composes and delivers outreach email.
package mailer

import (
	"context"
	"strings"
)

// FailureReason classifies why a send failed, so callers can surface an
// actionable message instead of a raw transport error.
type FailureReason string

const (
	FailureNone      FailureReason = ""
	FailureAuth      FailureReason = "auth"
	FailureRecipient FailureReason = "recipient"
	FailureConnect   FailureReason = "connect"
	FailureGeneric   FailureReason = "generic"
)

// SendResult reports the outcome of one delivery attempt.
type SendResult struct {
	Sent    bool          `json:"sent"`
	Reason  FailureReason `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers email. Send returns an error only for programmer mistakes
// (empty recipient); delivery failures come back classified in SendResult.
type Sender interface {
	Configured() bool
	Send(ctx context.Context, msg Message) SendResult
}

// classifyError maps an SMTP failure onto the reason taxonomy by common
// response text. Imperfect but good enough for operator guidance.
func classifyError(err error) (FailureReason, string) {
	if err == nil {
		return FailureNone, ""
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "535") ||
		strings.Contains(lower, "auth") ||
		strings.Contains(lower, "credentials"):
		return FailureAuth, "authentication failed, check SMTP username and password"
	case strings.Contains(lower, "550") ||
		strings.Contains(lower, "recipient") ||
		strings.Contains(lower, "mailbox"):
		return FailureRecipient, "recipient address rejected by server"
	case strings.Contains(lower, "connection") ||
		strings.Contains(lower, "dial") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "refused"):
		return FailureConnect, "could not reach SMTP server, check host and port"
	default:
		return FailureGeneric, err.Error()
	}
}
