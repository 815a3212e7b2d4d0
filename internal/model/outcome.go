package model

// Status tags the terminal state of one pipeline run. Every exit path is
// one of these — business outcomes are values, not errors.
type Status string

const (
	// StatusCompleted: all gates passed, a response was generated.
	StatusCompleted Status = "completed"
	// StatusDenied: the authorization gate refused the request.
	StatusDenied Status = "denied"
	// StatusBlocked: the threat screen refused the request.
	StatusBlocked Status = "blocked"
	// StatusLockdown: the request was refused before any stage ran.
	StatusLockdown Status = "refused_lockdown"
	// StatusFailed: an infrastructure failure aborted this request.
	StatusFailed Status = "failed"
)

// Outcome is the single terminal result shape returned by the pipeline.
// Decision records for stages that ran are attached for observability and
// discarded by the caller after the response is rendered.
type Outcome struct {
	RequestID string `json:"request_id"`
	Status    Status `json:"status"`
	Mode      Mode   `json:"security_mode"`
	// Reason is the user-visible refusal text for negative outcomes.
	// Generic by design: it must not leak why access was refused.
	Reason string `json:"reason,omitempty"`
	// ReasonCode is the internal code for logs and audit, never shown to
	// the requesting user.
	ReasonCode string `json:"-"`

	Intent   *IntentDecision   `json:"intent,omitempty"`
	Policy   *PolicyDecision   `json:"policy,omitempty"`
	Safety   *SafetyDecision   `json:"safety,omitempty"`
	Response *ResponseDecision `json:"response,omitempty"`
}

// Refused reports whether the outcome is any terminal refusal.
func (o Outcome) Refused() bool {
	return o.Status != StatusCompleted
}

// FinalText returns the generated text, or "" for refusals.
func (o Outcome) FinalText() string {
	if o.Response == nil {
		return ""
	}
	return o.Response.FinalText
}
