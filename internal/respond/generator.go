package respond

import (
	"context"
	"fmt"
	"strings"

	"github.com/aegisgraph/aegisgraph/internal/llm"
	"github.com/aegisgraph/aegisgraph/internal/model"
)

// Titan Text Express on-demand pricing per 1K tokens.
const (
	inputCostPer1K  = 0.0008
	outputCostPer1K = 0.0016
)

// projection names the record categories a scope permits into the prompt.
type projection struct {
	conditions  bool
	medications bool
	allergies   bool
}

func projectionFor(scope model.Scope) projection {
	switch scope {
	case model.ScopeFull:
		return projection{conditions: true, medications: true, allergies: true}
	case model.ScopeLimited:
		return projection{medications: true, allergies: true}
	default:
		return projection{}
	}
}

// Generator produces the final response text for a request that passed
// every gate.
type Generator struct {
	llm     llm.Invoker
	fetcher Fetcher
}

// NewGenerator creates a Generator. fetcher may be nil when no graph
// store is configured; NONE-scope requests still work.
func NewGenerator(inv llm.Invoker, fetcher Fetcher) *Generator {
	return &Generator{llm: inv, fetcher: fetcher}
}

// Generate builds the scoped prompt and invokes the model. Failures are
// wrapped in GenerationError so the caller can distinguish generation
// faults from policy refusals.
func (g *Generator) Generate(ctx context.Context, req model.Request, scope model.Scope, history []model.HistoryTurn) (model.ResponseDecision, error) {
	var rec Record
	if scope != model.ScopeNone {
		if g.fetcher == nil {
			return model.ResponseDecision{}, &model.GenerationError{Err: fmt.Errorf("scope %s requires a record store, none configured", scope)}
		}
		var err error
		rec, err = g.fetcher.Patient(ctx, req.PatientID)
		if err != nil {
			return model.ResponseDecision{}, &model.GenerationError{Err: err}
		}
	}

	prompt := buildPrompt(req, scope, rec, history)
	text, err := g.llm.Invoke(ctx, prompt)
	if err != nil {
		return model.ResponseDecision{}, &model.GenerationError{Err: err}
	}

	text = strings.TrimSpace(text)
	tokensIn := estimateTokens(prompt)
	tokensOut := estimateTokens(text)
	return model.ResponseDecision{
		FinalText: text,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CostUSD:   float64(tokensIn)/1000*inputCostPer1K + float64(tokensOut)/1000*outputCostPer1K,
	}, nil
}

// estimateTokens approximates token count as len/4. Good enough for cost
// accounting; never used in control decisions.
func estimateTokens(s string) int {
	return len(s) / 4
}

func buildPrompt(req model.Request, scope model.Scope, rec Record, history []model.HistoryTurn) string {
	var b strings.Builder
	b.WriteString("You are a medical records assistant for authorized healthcare staff.\n")
	b.WriteString("Answer concisely and only from the patient context provided below.\n")
	b.WriteString("Never invent data that is not in the context.\n\n")

	p := projectionFor(scope)
	switch scope {
	case model.ScopeNone:
		b.WriteString("No patient context is available for this request. Answer the general question without referring to any specific patient.\n")
	case model.ScopeLimited:
		b.WriteString("EMERGENCY ACCESS: only allergies and current medications are available. Do not speculate about other aspects of this patient's record.\n")
	}

	if scope != model.ScopeNone {
		fmt.Fprintf(&b, "\nPatient context (%s):\n", req.PatientID)
		if rec.Name != "" {
			fmt.Fprintf(&b, "Name: %s\n", rec.Name)
		}
		if p.conditions && len(rec.Conditions) > 0 {
			fmt.Fprintf(&b, "Conditions: %s\n", strings.Join(rec.Conditions, ", "))
		}
		if p.medications && len(rec.Medications) > 0 {
			fmt.Fprintf(&b, "Medications: %s\n", strings.Join(rec.Medications, ", "))
		}
		if p.allergies && len(rec.Allergies) > 0 {
			fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(rec.Allergies, ", "))
		}
	}

	if len(history) > 0 {
		b.WriteString("\nPrior conversation, oldest first:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Message, turn.Response)
		}
	}

	fmt.Fprintf(&b, "\nRequest from %s (%s): %s\n", req.DoctorID, req.Role, req.Message)
	return b.String()
}
