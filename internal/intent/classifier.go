// Package intent classifies inbound requests into coarse categories.
// Classification is informational in the decision core: failures degrade
// to UNKNOWN instead of aborting the pipeline.
package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aegisgraph/aegisgraph/internal/llm"
	"github.com/aegisgraph/aegisgraph/internal/model"
)

// Classifier wraps the LLM classification call.
type Classifier struct {
	llm llm.Invoker
}

// NewClassifier creates a Classifier.
func NewClassifier(inv llm.Invoker) *Classifier {
	return &Classifier{llm: inv}
}

type reply struct {
	Intent              string  `json:"intent"`
	NeedsPatientContext bool    `json:"needs_patient_context"`
	Confidence          float64 `json:"confidence"`
	Reason              string  `json:"reason"`
}

// Classify returns the intent decision for a request. Any failure —
// transport, parse, unknown category — degrades to UNKNOWN with zero
// confidence and needs_patient_context=true so authorization still runs.
func (c *Classifier) Classify(ctx context.Context, req model.Request) model.IntentDecision {
	raw, err := c.llm.Invoke(ctx, buildPrompt(req))
	if err != nil {
		return unknown(fmt.Sprintf("classification failed: %v", err))
	}

	var r reply
	if err := json.Unmarshal([]byte(llm.CleanJSON(raw)), &r); err != nil {
		return unknown("classification returned unparseable reply")
	}

	intent := model.Intent(r.Intent)
	switch intent {
	case model.IntentTreatment, model.IntentBilling, model.IntentAdmin, model.IntentUnknown:
	default:
		intent = model.IntentUnknown
	}

	return model.IntentDecision{
		Intent:              intent,
		NeedsPatientContext: r.NeedsPatientContext,
		Confidence:          model.ClampUnit(r.Confidence),
		Reason:              r.Reason,
	}
}

// unknown is the degraded decision. NeedsPatientContext stays true so a
// failed classifier can never skip the authorization gate.
func unknown(reason string) model.IntentDecision {
	return model.IntentDecision{
		Intent:              model.IntentUnknown,
		NeedsPatientContext: true,
		Confidence:          0,
		Reason:              reason,
	}
}

func buildPrompt(req model.Request) string {
	return fmt.Sprintf(`You are a medical intent classifier. Analyze the following message and classify its intent.

Message: %s
Role: %s

Classify the intent as one of: TREATMENT, BILLING, ADMIN, or UNKNOWN.

Determine if the request needs patient context (true/false).

Provide a confidence score between 0.0 and 1.0.

Respond ONLY with valid JSON in this exact format:
{"intent":"TREATMENT|BILLING|ADMIN|UNKNOWN","needs_patient_context":true,"confidence":0.0,"reason":"brief explanation"}`, req.Message, req.Role)
}
