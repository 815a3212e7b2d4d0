package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

// --- Input/Output types ---

// ChatInput defines parameters for the aegis_chat tool.
type ChatInput struct {
	UserID    string `json:"user_id" jsonschema:"requesting user identifier"`
	Role      string `json:"role" jsonschema:"clinical role of the requester"`
	DocID     string `json:"doc_id" jsonschema:"doctor identifier"`
	PatientID string `json:"patient_id" jsonschema:"patient identifier"`
	Message   string `json:"message" jsonschema:"the question to answer"`
}

// ChatOutput contains the pipeline outcome for one chat request.
type ChatOutput struct {
	RequestID  string  `json:"request_id"`
	Status     string  `json:"status"`
	Response   string  `json:"response"`
	Mode       string  `json:"security_mode"`
	BreakGlass bool    `json:"break_glass,omitempty"`
	TokensIn   int     `json:"tokens_in,omitempty"`
	TokensOut  int     `json:"tokens_out,omitempty"`
	CostUSD    float64 `json:"cost_usd,omitempty"`
}

// CheckAccessInput defines parameters for the aegis_check_access tool.
type CheckAccessInput struct {
	DocID     string `json:"doc_id" jsonschema:"doctor identifier"`
	PatientID string `json:"patient_id" jsonschema:"patient identifier"`
	Role      string `json:"role,omitempty" jsonschema:"clinical role of the requester"`
	Message   string `json:"message,omitempty" jsonschema:"message text, checked for emergency markers"`
}

// CheckAccessOutput contains the authorization decision.
type CheckAccessOutput struct {
	Authorized bool   `json:"authorized"`
	Scope      string `json:"scope"`
	BreakGlass bool   `json:"break_glass,omitempty"`
	ReasonCode string `json:"reason_code"`
}

// ModeInput is empty, no parameters needed.
type ModeInput struct{}

// ModeOutput reports the security mode.
type ModeOutput struct {
	Mode string `json:"security_mode"`
}

// SetModeInput defines parameters for the aegis_set_mode tool.
type SetModeInput struct {
	Mode string `json:"mode" jsonschema:"target mode (NORMAL, STRICT, or LOCKDOWN)"`
}

// EscalationOutput reports the escalation window state.
type EscalationOutput struct {
	Mode          string `json:"security_mode"`
	RefusalCount  int    `json:"refusal_count"`
	Threshold     int    `json:"threshold"`
	WindowSeconds int    `json:"window_seconds"`
}

// --- Handlers ---

func (s *Server) handleChat(ctx context.Context, req *mcpsdk.CallToolRequest, input ChatInput) (*mcpsdk.CallToolResult, ChatOutput, error) {
	out := s.pipe.Handle(ctx, model.Request{
		UserID:    input.UserID,
		Role:      input.Role,
		DoctorID:  input.DocID,
		PatientID: input.PatientID,
		Message:   input.Message,
	})

	result := ChatOutput{
		RequestID: out.RequestID,
		Status:    string(out.Status),
		Mode:      string(out.Mode),
	}
	if out.Refused() {
		result.Response = out.Reason
		return &mcpsdk.CallToolResult{IsError: true}, result, nil
	}
	result.Response = out.FinalText()
	if out.Policy != nil {
		result.BreakGlass = out.Policy.BreakGlass
	}
	if out.Response != nil {
		result.TokensIn = out.Response.TokensIn
		result.TokensOut = out.Response.TokensOut
		result.CostUSD = out.Response.CostUSD
	}
	return nil, result, nil
}

func (s *Server) handleCheckAccess(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckAccessInput) (*mcpsdk.CallToolResult, CheckAccessOutput, error) {
	// Dry-run: the check sees the same request shape the pipeline would,
	// but nothing is generated and no refusal event is recorded.
	policy, _ := s.authz.Check(ctx, model.Request{
		DoctorID:  input.DocID,
		PatientID: input.PatientID,
		Role:      input.Role,
		Message:   input.Message,
	}, model.IntentDecision{NeedsPatientContext: true})

	return nil, CheckAccessOutput{
		Authorized: policy.Authorized,
		Scope:      string(policy.Scope),
		BreakGlass: policy.BreakGlass,
		ReasonCode: policy.ReasonCode,
	}, nil
}

func (s *Server) handleGetMode(ctx context.Context, req *mcpsdk.CallToolRequest, input ModeInput) (*mcpsdk.CallToolResult, ModeOutput, error) {
	return nil, ModeOutput{Mode: string(s.modes.CurrentMode())}, nil
}

func (s *Server) handleSetMode(ctx context.Context, req *mcpsdk.CallToolRequest, input SetModeInput) (*mcpsdk.CallToolResult, ModeOutput, error) {
	mode, err := model.ParseMode(input.Mode)
	if err != nil {
		return nil, ModeOutput{}, err
	}
	s.modes.SetMode(mode)
	return nil, ModeOutput{Mode: string(mode)}, nil
}

func (s *Server) handleEscalationStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input ModeInput) (*mcpsdk.CallToolResult, EscalationOutput, error) {
	return nil, EscalationOutput{
		Mode:          string(s.modes.CurrentMode()),
		RefusalCount:  s.tracker.Count(),
		Threshold:     s.tracker.Threshold(),
		WindowSeconds: int(s.tracker.Window().Seconds()),
	}, nil
}
