package aegisgraph

import "github.com/aegisgraph/aegisgraph/internal/model"

// Request is one question about a patient.
type Request struct {
	RequestID string
	UserID    string
	Role      string
	DoctorID  string
	PatientID string
	Message   string
}

// Outcome is the terminal result of one request.
type Outcome struct {
	RequestID string
	// Status is one of "completed", "denied", "blocked",
	// "refused_lockdown", "failed".
	Status string
	// Response is the generated text, or the generic refusal reason.
	Response   string
	Mode       string
	BreakGlass bool
	TokensIn   int
	TokensOut  int
	CostUSD    float64
}

// Completed reports whether the request produced a generated response.
func (o Outcome) Completed() bool { return o.Status == string(model.StatusCompleted) }

// Access is the result of a dry-run authorization check.
type Access struct {
	Authorized bool
	Scope      string
	BreakGlass bool
	ReasonCode string
}

// EscalationStatus describes the refusal window.
type EscalationStatus struct {
	Mode          string
	RefusalCount  int
	Threshold     int
	WindowSeconds int
}

func toOutcome(out model.Outcome) Outcome {
	o := Outcome{
		RequestID: out.RequestID,
		Status:    string(out.Status),
		Mode:      string(out.Mode),
	}
	if out.Refused() {
		o.Response = out.Reason
	} else {
		o.Response = out.FinalText()
	}
	if out.Policy != nil {
		o.BreakGlass = out.Policy.BreakGlass
	}
	if out.Response != nil {
		o.TokensIn = out.Response.TokensIn
		o.TokensOut = out.Response.TokensOut
		o.CostUSD = out.Response.CostUSD
	}
	return o
}
