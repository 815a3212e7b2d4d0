// Package authz answers "may this actor act on this subject", including
// the break-glass emergency override path. All failure modes fail closed.
package authz

import (
	"context"
	"strings"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

// Querier is the single read surface the oracle needs from the graph store.
type Querier interface {
	Run(ctx context.Context, stmt string, params map[string]any) ([]map[string]any, error)
}

// Config holds break-glass eligibility data. Markers are matched as
// case-insensitive substrings of the message text.
type Config struct {
	EmergencyRoles   []string
	EmergencyMarkers []string
}

// Oracle checks relationship-based authorization against the graph store.
// Stateless per call; safe for concurrent use.
type Oracle struct {
	graph Querier
	cfg   Config
}

// NewOracle creates an Oracle. Empty role/marker lists fall back to the
// built-in defaults (ER role; "emergency"/"unconscious" markers).
func NewOracle(g Querier, cfg Config) *Oracle {
	if len(cfg.EmergencyRoles) == 0 {
		cfg.EmergencyRoles = []string{"ER"}
	}
	if len(cfg.EmergencyMarkers) == 0 {
		cfg.EmergencyMarkers = []string{"emergency", "unconscious"}
	}
	return &Oracle{graph: g, cfg: cfg}
}

const relationshipQuery = `
MATCH (d:Doctor {id: $docId}), (p:Patient {id: $patId})
OPTIONAL MATCH path = (d)-[:TREATS]->(p)
RETURN CASE WHEN path IS NOT NULL THEN true ELSE false END AS authorized
`

const roleQuery = `
MATCH (d:Doctor {id: $docId})-[:HAS_ROLE]->(r:Role)
WHERE r.name IN $roles
RETURN count(r) > 0 AS has_role
`

// Check evaluates authorization for one request.
//
// Order: a stored TREATS edge grants FULL scope; absent an edge,
// break-glass eligibility (emergency role AND emergency marker in the
// message) grants LIMITED_ALLERGIES_MEDS; otherwise the request is denied
// with scope NONE. An unreachable store fails closed: the decision is a
// denial and the returned error is a *model.StoreError so callers can
// tell "denied" from "couldn't check".
func (o *Oracle) Check(ctx context.Context, req model.Request, intent model.IntentDecision) (model.PolicyDecision, error) {
	// Requests that need no patient context skip the graph round trip
	// entirely and carry no data scope.
	if !intent.NeedsPatientContext {
		return model.PolicyDecision{
			Authorized: true,
			Scope:      model.ScopeNone,
			ReasonCode: "no_patient_context_needed",
		}, nil
	}

	rows, err := o.graph.Run(ctx, relationshipQuery, map[string]any{
		"docId": req.DoctorID,
		"patId": req.PatientID,
	})
	if err != nil {
		return model.PolicyDecision{
			Authorized: false,
			Scope:      model.ScopeNone,
			ReasonCode: "graph_unavailable",
		}, &model.StoreError{Op: "relationship check", Err: err}
	}

	if len(rows) > 0 {
		if authorized, _ := rows[0]["authorized"].(bool); authorized {
			return model.PolicyDecision{
				Authorized: true,
				Scope:      model.ScopeFull,
				ReasonCode: "treats_relationship_found",
			}, nil
		}
	}

	if o.breakGlassEligible(ctx, req) {
		return model.PolicyDecision{
			Authorized: true,
			Scope:      model.ScopeLimited,
			BreakGlass: true,
			ReasonCode: "break_glass_emergency",
		}, nil
	}

	return model.PolicyDecision{
		Authorized: false,
		Scope:      model.ScopeNone,
		ReasonCode: "no_treats_relationship",
	}, nil
}

// breakGlassEligible requires both an emergency marker in the message and
// a stored emergency role for the actor. A failed role lookup means not
// eligible — break-glass never widens access on infrastructure errors.
func (o *Oracle) breakGlassEligible(ctx context.Context, req model.Request) bool {
	if !o.hasEmergencyMarker(req.Message) {
		return false
	}

	rows, err := o.graph.Run(ctx, roleQuery, map[string]any{
		"docId": req.DoctorID,
		"roles": o.cfg.EmergencyRoles,
	})
	if err != nil || len(rows) == 0 {
		return false
	}
	hasRole, _ := rows[0]["has_role"].(bool)
	return hasRole
}

func (o *Oracle) hasEmergencyMarker(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range o.cfg.EmergencyMarkers {
		if marker == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
