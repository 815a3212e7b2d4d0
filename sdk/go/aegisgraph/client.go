package aegisgraph

import (
	"context"
	"fmt"

	"github.com/aegisgraph/aegisgraph/internal/alert"
	"github.com/aegisgraph/aegisgraph/internal/audit"
	"github.com/aegisgraph/aegisgraph/internal/authz"
	"github.com/aegisgraph/aegisgraph/internal/config"
	"github.com/aegisgraph/aegisgraph/internal/escalate"
	"github.com/aegisgraph/aegisgraph/internal/graph"
	"github.com/aegisgraph/aegisgraph/internal/history"
	"github.com/aegisgraph/aegisgraph/internal/intent"
	"github.com/aegisgraph/aegisgraph/internal/llm"
	"github.com/aegisgraph/aegisgraph/internal/metrics"
	"github.com/aegisgraph/aegisgraph/internal/model"
	"github.com/aegisgraph/aegisgraph/internal/pipeline"
	"github.com/aegisgraph/aegisgraph/internal/respond"
	"github.com/aegisgraph/aegisgraph/internal/safety"
)

// Client runs the access pipeline in-process. Safe for concurrent use.
type Client struct {
	pipe    *pipeline.Pipeline
	oracle  *authz.Oracle
	tracker *escalate.Tracker
	modes   *escalate.Controller

	auditLog *audit.Log
	turns    *history.Store
}

// New assembles a Client from configuration.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	var ccfg clientConfig
	for _, o := range opts {
		o(&ccfg)
	}

	cfg, hash, err := config.LoadWithHash(ccfg.configPath)
	if err != nil {
		return nil, fmt.Errorf("aegisgraph: %w", err)
	}
	if ccfg.auditPath != "" {
		cfg.AuditLog = ccfg.auditPath
	}

	invoker, err := llm.New(ctx, llm.Config{
		Provider:  cfg.LLM.Provider,
		ModelID:   cfg.LLM.ModelID,
		Region:    cfg.LLM.Region,
		APIURL:    cfg.LLM.APIURL,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("aegisgraph: failed to create LLM invoker: %w", err)
	}

	graphClient := graph.New(graph.Config{
		URL:      cfg.Graph.URL,
		Database: cfg.Graph.Database,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Timeout:  cfg.Graph.Timeout,
	})

	patterns, err := safety.LoadPatterns(cfg.Safety.PatternsPath)
	if err != nil {
		return nil, fmt.Errorf("aegisgraph: failed to load safety patterns: %w", err)
	}

	c := &Client{
		oracle: authz.NewOracle(graphClient, authz.Config{
			EmergencyRoles:   cfg.Authz.EmergencyRoles,
			EmergencyMarkers: cfg.Authz.EmergencyMarkers,
		}),
		tracker: escalate.NewTracker(cfg.Escalation.Window, cfg.Escalation.Threshold),
	}
	c.modes = escalate.NewController(cfg.Escalation.Cooldown, nil)

	if cfg.AuditLog != "" {
		c.auditLog, err = audit.Open(cfg.AuditLog)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("aegisgraph: failed to open audit log: %w", err)
		}
	}
	if cfg.History.Path != "" {
		c.turns, err = history.Open(cfg.History.Path, cfg.History.MaxTurns)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("aegisgraph: failed to open history store: %w", err)
		}
	}

	popts := pipeline.Options{
		Intent:     intent.NewClassifier(invoker),
		Authz:      c.oracle,
		Safety:     safety.NewScreen(invoker, patterns, cfg.Safety.BlockThreshold),
		Respond:    respond.NewGenerator(invoker, respond.NewGraphFetcher(graphClient)),
		Tracker:    c.tracker,
		Modes:      c.modes,
		Metrics:    metrics.New(cfg.Metrics.APIKey, cfg.Metrics.Site, cfg.Metrics.Tags),
		Alerts:     alert.NewDispatcher(cfg.Alerts),
		ConfigHash: hash,
	}
	if c.auditLog != nil {
		popts.Audit = c.auditLog
	}
	if c.turns != nil {
		popts.History = c.turns
	}
	c.pipe = pipeline.New(popts)
	return c, nil
}

// Ask runs one request through the full pipeline. Refusals are outcome
// statuses, never errors.
func (c *Client) Ask(ctx context.Context, req Request) Outcome {
	return toOutcome(c.pipe.Handle(ctx, model.Request{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Role:      req.Role,
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Message:   req.Message,
	}))
}

// CheckAccess runs the authorization check alone (dry-run). No refusal
// event is recorded and nothing is generated.
func (c *Client) CheckAccess(ctx context.Context, doctorID, patientID, role, message string) (Access, error) {
	policy, err := c.oracle.Check(ctx, model.Request{
		DoctorID:  doctorID,
		PatientID: patientID,
		Role:      role,
		Message:   message,
	}, model.IntentDecision{NeedsPatientContext: true})
	return Access{
		Authorized: policy.Authorized,
		Scope:      string(policy.Scope),
		BreakGlass: policy.BreakGlass,
		ReasonCode: policy.ReasonCode,
	}, err
}

// Mode returns the current security mode.
func (c *Client) Mode() string {
	return string(c.modes.CurrentMode())
}

// SetMode applies an operator override.
func (c *Client) SetMode(mode string) error {
	m, err := model.ParseMode(mode)
	if err != nil {
		return err
	}
	c.modes.SetMode(m)
	return nil
}

// Escalation reports the refusal window state.
func (c *Client) Escalation() EscalationStatus {
	return EscalationStatus{
		Mode:          string(c.modes.CurrentMode()),
		RefusalCount:  c.tracker.Count(),
		Threshold:     c.tracker.Threshold(),
		WindowSeconds: int(c.tracker.Window().Seconds()),
	}
}

// Close releases held resources.
func (c *Client) Close() {
	c.modes.Close()
	if c.auditLog != nil {
		c.auditLog.Close()
	}
	if c.turns != nil {
		c.turns.Close()
	}
}
