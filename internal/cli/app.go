package cli

import (
	"context"
	"fmt"
	"os"
	"time"

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

// app holds the assembled service: the pipeline plus the shared pieces
// the control surfaces need direct access to.
type app struct {
	cfg        *config.Config
	configHash string

	pipe    *pipeline.Pipeline
	oracle  *authz.Oracle
	screen  *safety.Screen
	tracker *escalate.Tracker
	modes   *escalate.Controller

	auditLog *audit.Log
	turns    *history.Store
}

// buildApp wires every component from configuration.
func buildApp(ctx context.Context) (*app, error) {
	cfg, hash, err := config.LoadWithHash(configPath)
	if err != nil {
		return nil, err
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
		return nil, fmt.Errorf("failed to create LLM invoker: %w", err)
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
		return nil, fmt.Errorf("failed to load safety patterns: %w", err)
	}

	emitter := metrics.New(cfg.Metrics.APIKey, cfg.Metrics.Site, cfg.Metrics.Tags)
	dispatcher := alert.NewDispatcher(cfg.Alerts)

	tracker := escalate.NewTracker(cfg.Escalation.Window, cfg.Escalation.Threshold)
	modes := escalate.NewController(cfg.Escalation.Cooldown, func(from, to model.Mode, reason string) {
		fmt.Fprintf(os.Stderr, "mode: %s -> %s (%s)\n", from, to, reason)
		emitter.Count("aegisgraph.mode.transitions", 1, "to:"+string(to), "reason:"+reason)
		if dispatcher != nil && reason == "escalation_threshold" {
			dispatcher.Dispatch(alert.Event{
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Outcome:   "escalated",
				Type:      "escalated",
				Reason:    reason,
				Mode:      string(to),
			})
		}
	})

	a := &app{
		cfg:        cfg,
		configHash: hash,
		oracle: authz.NewOracle(graphClient, authz.Config{
			EmergencyRoles:   cfg.Authz.EmergencyRoles,
			EmergencyMarkers: cfg.Authz.EmergencyMarkers,
		}),
		screen:  safety.NewScreen(invoker, patterns, cfg.Safety.BlockThreshold),
		tracker: tracker,
		modes:   modes,
	}

	if cfg.AuditLog != "" {
		a.auditLog, err = audit.Open(cfg.AuditLog)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}
	if cfg.History.Path != "" {
		a.turns, err = history.Open(cfg.History.Path, cfg.History.MaxTurns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
	}

	opts := pipeline.Options{
		Intent:     intent.NewClassifier(invoker),
		Authz:      a.oracle,
		Safety:     a.screen,
		Respond:    respond.NewGenerator(invoker, respond.NewGraphFetcher(graphClient)),
		Tracker:    tracker,
		Modes:      modes,
		Metrics:    emitter,
		Alerts:     dispatcher,
		ConfigHash: hash,
	}
	if a.auditLog != nil {
		opts.Audit = a.auditLog
	}
	if a.turns != nil {
		opts.History = a.turns
	}
	a.pipe = pipeline.New(opts)
	return a, nil
}

// reload re-reads safety patterns from disk. Called by the hot-reloader.
func (a *app) reload() error {
	patterns, err := safety.LoadPatterns(a.cfg.Safety.PatternsPath)
	if err != nil {
		return err
	}
	a.screen.ReplacePatterns(patterns)
	return nil
}

// Close releases held resources.
func (a *app) Close() {
	a.modes.Close()
	if a.auditLog != nil {
		a.auditLog.Close()
	}
	if a.turns != nil {
		a.turns.Close()
	}
}
