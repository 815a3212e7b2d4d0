// Package pipeline runs one chat request through the gate sequence:
// lockdown check, intent classification, relationship authorization,
// threat screening, then response generation. Every terminal path
// produces exactly one Outcome and one audit entry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aegisgraph/aegisgraph/internal/alert"
	"github.com/aegisgraph/aegisgraph/internal/audit"
	"github.com/aegisgraph/aegisgraph/internal/escalate"
	"github.com/aegisgraph/aegisgraph/internal/metrics"
	"github.com/aegisgraph/aegisgraph/internal/model"
)

// User-visible refusal texts. Deliberately generic: they must not leak
// whether the refusal came from policy, screening, or posture.
const (
	refusalLockdown = "The system is temporarily unable to process requests. Please contact your administrator."
	refusalDenied   = "You are not authorized to access this patient's records."
	refusalBlocked  = "This request cannot be processed."
	refusalFailed   = "Unable to generate a response. Please try again."
)

// Classifier determines request intent.
type Classifier interface {
	Classify(ctx context.Context, req model.Request) model.IntentDecision
}

// Authorizer answers whether the actor may act on the subject.
type Authorizer interface {
	Check(ctx context.Context, req model.Request, intent model.IntentDecision) (model.PolicyDecision, error)
}

// Screener scans a message for threats under the current mode.
type Screener interface {
	Scan(ctx context.Context, message string, mode model.Mode) model.SafetyDecision
}

// Generator produces the final response text.
type Generator interface {
	Generate(ctx context.Context, req model.Request, scope model.Scope, history []model.HistoryTurn) (model.ResponseDecision, error)
}

// HistoryStore persists and replays conversation turns.
type HistoryStore interface {
	Save(ctx context.Context, req model.Request, responseText string, status model.Status, mode model.Mode) error
	Recent(ctx context.Context, docID, patientID string) ([]model.HistoryTurn, error)
}

// Auditor records terminal decisions.
type Auditor interface {
	Record(entry audit.Entry) error
}

// Options wires the pipeline's collaborators. Intent, Authz, Safety,
// Respond, Tracker and Modes are required; the rest are optional and
// nil-safe.
type Options struct {
	Intent  Classifier
	Authz   Authorizer
	Safety  Screener
	Respond Generator
	Tracker *escalate.Tracker
	Modes   *escalate.Controller

	History    HistoryStore
	Audit      Auditor
	Metrics    *metrics.Emitter
	Alerts     *alert.Dispatcher
	ConfigHash string
}

// Pipeline is the decision core. Stateless per request apart from the
// escalation tracker and mode controller it shares with the rest of the
// process.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Handle runs one request to a terminal outcome. It never returns an
// error: refusals and infrastructure failures are outcome statuses.
func (p *Pipeline) Handle(ctx context.Context, req model.Request) model.Outcome {
	req.EnsureRequestID()

	// Lockdown short-circuits before any stage runs. No classification,
	// no graph access, no model invocation.
	if mode := p.opts.Modes.CurrentMode(); mode == model.ModeLockdown {
		out := model.Outcome{
			RequestID:  req.RequestID,
			Status:     model.StatusLockdown,
			Mode:       mode,
			Reason:     refusalLockdown,
			ReasonCode: "lockdown_active",
		}
		p.finish(req, out)
		return out
	}

	intent := p.opts.Intent.Classify(ctx, req)

	policy, err := p.opts.Authz.Check(ctx, req, intent)
	if err != nil {
		var se *model.StoreError
		if errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "pipeline: %s: authorization store failure: %v\n", req.RequestID, err)
		}
	}
	if !policy.Authorized {
		return p.refuseDenied(req, intent, policy)
	}
	if policy.BreakGlass {
		p.dispatchAlert(req, alert.Event{
			Outcome:   string(model.StatusCompleted),
			Type:      "break_glass_used",
			Reason:    policy.ReasonCode,
			Mode:      string(p.opts.Modes.CurrentMode()),
			RiskScore: 0,
		})
		p.opts.Metrics.Count("aegisgraph.break_glass.used", 1)
	}

	// Mode is re-read here: a concurrent burst may have escalated the
	// posture since the lockdown gate.
	mode := p.opts.Modes.CurrentMode()
	safety := p.opts.Safety.Scan(ctx, req.Message, mode)
	if safety.Blocked {
		return p.refuseBlocked(req, intent, policy, safety)
	}

	var history []model.HistoryTurn
	if p.opts.History != nil && policy.Scope != model.ScopeNone {
		history, err = p.opts.History.Recent(ctx, req.DoctorID, req.PatientID)
		if err != nil {
			// Best-effort: a history outage degrades context, not access.
			fmt.Fprintf(os.Stderr, "pipeline: %s: history load: %v\n", req.RequestID, err)
			history = nil
		}
	}

	response, err := p.opts.Respond.Generate(ctx, req, policy.Scope, history)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %s: generation: %v\n", req.RequestID, err)
		out := model.Outcome{
			RequestID:  req.RequestID,
			Status:     model.StatusFailed,
			Mode:       mode,
			Reason:     refusalFailed,
			ReasonCode: "generation_error",
			Intent:     &intent,
			Policy:     &policy,
			Safety:     &safety,
		}
		p.finish(req, out)
		return out
	}

	out := model.Outcome{
		RequestID: req.RequestID,
		Status:    model.StatusCompleted,
		Mode:      mode,
		Intent:    &intent,
		Policy:    &policy,
		Safety:    &safety,
		Response:  &response,
	}
	p.finish(req, out)
	return out
}

// refuseDenied records the denial, feeds the escalation tracker, and
// returns the generic refusal.
func (p *Pipeline) refuseDenied(req model.Request, intent model.IntentDecision, policy model.PolicyDecision) model.Outcome {
	p.recordRefusal(func() { p.opts.Tracker.RecordDenial() })

	out := model.Outcome{
		RequestID:  req.RequestID,
		Status:     model.StatusDenied,
		Mode:       p.opts.Modes.CurrentMode(),
		Reason:     refusalDenied,
		ReasonCode: policy.ReasonCode,
		Intent:     &intent,
		Policy:     &policy,
	}
	p.dispatchAlert(req, alert.Event{
		Outcome: string(out.Status),
		Reason:  out.ReasonCode,
		Mode:    string(out.Mode),
	})
	p.finish(req, out)
	return out
}

// refuseBlocked reports the mode in effect after the refusal is
// recorded, so a block that itself trips escalation shows STRICT.
func (p *Pipeline) refuseBlocked(req model.Request, intent model.IntentDecision, policy model.PolicyDecision, safety model.SafetyDecision) model.Outcome {
	p.recordRefusal(func() { p.opts.Tracker.RecordBlock() })

	out := model.Outcome{
		RequestID:  req.RequestID,
		Status:     model.StatusBlocked,
		Mode:       p.opts.Modes.CurrentMode(),
		Reason:     refusalBlocked,
		ReasonCode: "threat_screen_block",
		Intent:     &intent,
		Policy:     &policy,
		Safety:     &safety,
	}
	p.dispatchAlert(req, alert.Event{
		Outcome:     string(out.Status),
		Reason:      safety.Reason,
		Mode:        string(out.Mode),
		RiskScore:   safety.RiskScore,
		AttackTypes: safety.AttackTypes,
	})
	p.finish(req, out)
	return out
}

// recordRefusal feeds one refusal into the tracker and fires escalation
// at the threshold. The tracker resets after firing so one burst causes
// exactly one transition.
func (p *Pipeline) recordRefusal(record func()) {
	record()
	if p.opts.Tracker.ShouldEscalate() {
		p.opts.Modes.Escalate()
		p.opts.Tracker.Reset()
	}
}

// saveTurn persists one terminal exchange, refusals included.
// Asynchronous: persistence latency never sits on the response path.
// Only completed turns are replayed into prompts; refused turns exist
// for the record alone.
func (p *Pipeline) saveTurn(req model.Request, out model.Outcome) {
	if p.opts.History == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.opts.History.Save(ctx, req, out.FinalText(), out.Status, out.Mode); err != nil {
			fmt.Fprintf(os.Stderr, "pipeline: %s: history save: %v\n", req.RequestID, err)
		}
	}()
}

// finish emits the audit entry, history save, and metrics for a
// terminal outcome.
func (p *Pipeline) finish(req model.Request, out model.Outcome) {
	p.saveTurn(req, out)
	if p.opts.Audit != nil {
		entry := audit.Entry{
			RequestID:  out.RequestID,
			Actor:      req.DoctorID,
			Subject:    req.PatientID,
			Role:       req.Role,
			Status:     string(out.Status),
			Mode:       string(out.Mode),
			ReasonCode: out.ReasonCode,
			ConfigHash: p.opts.ConfigHash,
		}
		if out.Intent != nil {
			entry.Intent = string(out.Intent.Intent)
		}
		if out.Policy != nil {
			entry.Scope = string(out.Policy.Scope)
			entry.BreakGlass = out.Policy.BreakGlass
		}
		if out.Safety != nil {
			entry.RiskScore = out.Safety.RiskScore
			entry.AttackTags = out.Safety.AttackTypes
		}
		if err := p.opts.Audit.Record(entry); err != nil {
			fmt.Fprintf(os.Stderr, "pipeline: %s: audit: %v\n", req.RequestID, err)
		}
	}
	p.opts.Metrics.Count("aegisgraph.requests.total", 1,
		"status:"+string(out.Status), "mode:"+string(out.Mode))
	if out.Safety != nil {
		p.opts.Metrics.Gauge("aegisgraph.risk_score", float64(out.Safety.RiskScore))
	}
	if out.Response != nil {
		p.opts.Metrics.Count("aegisgraph.tokens.total", float64(out.Response.TokensIn+out.Response.TokensOut))
	}
}

func (p *Pipeline) dispatchAlert(req model.Request, event alert.Event) {
	if p.opts.Alerts == nil {
		return
	}
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	event.RequestID = req.RequestID
	event.Actor = req.DoctorID
	event.Subject = req.PatientID
	p.opts.Alerts.Dispatch(event)
}
