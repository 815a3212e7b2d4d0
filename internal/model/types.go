package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Mode is the process-wide security posture.
type Mode string

const (
	ModeNormal   Mode = "NORMAL"
	ModeStrict   Mode = "STRICT"
	ModeLockdown Mode = "LOCKDOWN"
)

// ModeRank maps modes to a comparable integer, tighter postures rank higher.
var ModeRank = map[Mode]int{
	ModeNormal:   0,
	ModeStrict:   1,
	ModeLockdown: 2,
}

// ParseMode parses an operator-supplied mode string, case-insensitive.
// "strict_mode" is accepted as a legacy alias for STRICT.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORMAL":
		return ModeNormal, nil
	case "STRICT", "STRICT_MODE":
		return ModeStrict, nil
	case "LOCKDOWN":
		return ModeLockdown, nil
	default:
		return "", fmt.Errorf("invalid security mode %q: must be one of NORMAL, STRICT, LOCKDOWN", s)
	}
}

// Scope is the subset of subject data a decision permits to reach generation.
type Scope string

const (
	ScopeFull    Scope = "FULL"
	ScopeLimited Scope = "LIMITED_ALLERGIES_MEDS"
	ScopeNone    Scope = "NONE"
)

// Intent categories for inbound requests. Informational only in the core.
type Intent string

const (
	IntentTreatment Intent = "TREATMENT"
	IntentBilling   Intent = "BILLING"
	IntentAdmin     Intent = "ADMIN"
	IntentUnknown   Intent = "UNKNOWN"
)

// Request is one inbound chat request. Immutable after validation;
// consumed exactly once by the pipeline.
type Request struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	DoctorID  string `json:"doc_id"`
	PatientID string `json:"patient_id"`
	Message   string `json:"message"`
	// ModeHint is the caller-supplied security mode. Informational only —
	// the controller's own mode is authoritative.
	ModeHint string `json:"security_mode,omitempty"`
}

// EnsureRequestID assigns a fresh request ID when the caller supplied none.
func (r *Request) EnsureRequestID() {
	if r.RequestID == "" {
		r.RequestID = NewRequestID()
	}
}

// NewRequestID generates a request identifier ("req-" + 12 hex chars).
func NewRequestID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("req-%x", time.Now().UnixNano())
	}
	return "req-" + hex.EncodeToString(b)
}

// IntentDecision is the output of intent classification.
type IntentDecision struct {
	Intent              Intent  `json:"intent"`
	NeedsPatientContext bool    `json:"needs_patient_context"`
	Confidence          float64 `json:"confidence"`
	Reason              string  `json:"reason"`
}

// PolicyDecision is the output of the authorization check.
//
// INVARIANT: BreakGlass implies Authorized and Scope != FULL.
type PolicyDecision struct {
	Authorized bool   `json:"authorized"`
	Scope      Scope  `json:"scope"`
	BreakGlass bool   `json:"break_glass"`
	ReasonCode string `json:"reason_code"`
}

// SafetyDecision is the output of the threat screen.
type SafetyDecision struct {
	Blocked         bool     `json:"blocked"`
	RiskScore       int      `json:"risk_score"`
	PHIExposureRisk float64  `json:"phi_exposure_risk"`
	AttackTypes     []string `json:"attack_types,omitempty"`
	Reason          string   `json:"reason,omitempty"`
}

// ResponseDecision is the output of response generation. Token and cost
// fields are pass-through accounting, never used in control decisions.
type ResponseDecision struct {
	FinalText string  `json:"final_text"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	CostUSD   float64 `json:"cost_usd"`
}

// HistoryTurn is one prior (message, response) exchange for an
// actor-subject pair, ordered oldest to newest when replayed.
type HistoryTurn struct {
	Message  string    `json:"message"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// ClampRisk bounds a risk score to [0, 100].
func ClampRisk(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampUnit bounds a ratio to [0.0, 1.0].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
