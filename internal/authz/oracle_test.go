package authz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

// fakeGraph returns canned rows per statement fragment.
type fakeGraph struct {
	hasEdge  bool
	hasRole  bool
	edgeErr  error
	roleErr  error
	queries  []string
	rolesArg []string
}

func (f *fakeGraph) Run(ctx context.Context, stmt string, params map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, stmt)
	if strings.Contains(stmt, "TREATS") {
		if f.edgeErr != nil {
			return nil, f.edgeErr
		}
		return []map[string]any{{"authorized": f.hasEdge}}, nil
	}
	if strings.Contains(stmt, "HAS_ROLE") {
		if roles, ok := params["roles"].([]string); ok {
			f.rolesArg = roles
		}
		if f.roleErr != nil {
			return nil, f.roleErr
		}
		return []map[string]any{{"has_role": f.hasRole}}, nil
	}
	return nil, nil
}

func needsContext() model.IntentDecision {
	return model.IntentDecision{Intent: model.IntentTreatment, NeedsPatientContext: true}
}

func TestEdgeGrantsFullScope(t *testing.T) {
	g := &fakeGraph{hasEdge: true}
	o := NewOracle(g, Config{})

	pd, err := o.Check(context.Background(), model.Request{DoctorID: "D1", PatientID: "P101", Message: "how is the patient"}, needsContext())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !pd.Authorized || pd.Scope != model.ScopeFull || pd.BreakGlass {
		t.Errorf("unexpected decision: %+v", pd)
	}
}

func TestNoEdgeNoMarkerDenied(t *testing.T) {
	g := &fakeGraph{hasEdge: false, hasRole: true}
	o := NewOracle(g, Config{})

	pd, err := o.Check(context.Background(), model.Request{DoctorID: "D1", PatientID: "P999", Message: "show me the chart"}, needsContext())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if pd.Authorized || pd.Scope != model.ScopeNone {
		t.Errorf("expected denial with scope NONE, got %+v", pd)
	}
	// No marker in the message — the role lookup must not even run.
	for _, q := range g.queries {
		if strings.Contains(q, "HAS_ROLE") {
			t.Error("role lookup ran without an emergency marker")
		}
	}
}

func TestBreakGlassGrantsLimitedScope(t *testing.T) {
	g := &fakeGraph{hasEdge: false, hasRole: true}
	o := NewOracle(g, Config{})

	pd, err := o.Check(context.Background(), model.Request{
		DoctorID: "D2", PatientID: "P101",
		Message: "EMERGENCY: patient found unresponsive, need allergies now",
	}, needsContext())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !pd.Authorized || !pd.BreakGlass {
		t.Fatalf("expected break-glass grant, got %+v", pd)
	}
	if pd.Scope != model.ScopeLimited {
		t.Errorf("break-glass scope = %s, want %s", pd.Scope, model.ScopeLimited)
	}
}

func TestBreakGlassInvariant(t *testing.T) {
	g := &fakeGraph{hasEdge: false, hasRole: true}
	o := NewOracle(g, Config{})

	pd, _ := o.Check(context.Background(), model.Request{
		DoctorID: "D2", PatientID: "P101", Message: "emergency",
	}, needsContext())
	if pd.BreakGlass && (!pd.Authorized || pd.Scope == model.ScopeFull) {
		t.Errorf("break-glass invariant violated: %+v", pd)
	}
}

func TestMarkerWithoutRoleDenied(t *testing.T) {
	g := &fakeGraph{hasEdge: false, hasRole: false}
	o := NewOracle(g, Config{})

	pd, err := o.Check(context.Background(), model.Request{
		DoctorID: "D3", PatientID: "P101", Message: "this is an EMERGENCY",
	}, needsContext())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if pd.Authorized {
		t.Errorf("marker without emergency role must not authorize: %+v", pd)
	}
}

func TestStoreUnreachableFailsClosed(t *testing.T) {
	g := &fakeGraph{edgeErr: errors.New("connection refused")}
	o := NewOracle(g, Config{})

	pd, err := o.Check(context.Background(), model.Request{DoctorID: "D1", PatientID: "P101", Message: "hello"}, needsContext())
	if pd.Authorized {
		t.Error("unreachable store must fail closed")
	}
	var se *model.StoreError
	if !errors.As(err, &se) {
		t.Errorf("expected *model.StoreError, got %v", err)
	}
	if pd.ReasonCode != "graph_unavailable" {
		t.Errorf("reason = %s, want graph_unavailable", pd.ReasonCode)
	}
}

func TestRoleLookupErrorNeverWidensAccess(t *testing.T) {
	g := &fakeGraph{hasEdge: false, roleErr: errors.New("timeout")}
	o := NewOracle(g, Config{})

	pd, err := o.Check(context.Background(), model.Request{
		DoctorID: "D2", PatientID: "P101", Message: "emergency",
	}, needsContext())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if pd.Authorized || pd.BreakGlass {
		t.Errorf("role lookup failure must not grant access: %+v", pd)
	}
}

func TestNoPatientContextSkipsGraph(t *testing.T) {
	g := &fakeGraph{}
	o := NewOracle(g, Config{})

	pd, err := o.Check(context.Background(), model.Request{DoctorID: "D1", Message: "what are your office hours"},
		model.IntentDecision{Intent: model.IntentAdmin, NeedsPatientContext: false})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !pd.Authorized || pd.Scope != model.ScopeNone {
		t.Errorf("expected authorized with scope NONE, got %+v", pd)
	}
	if len(g.queries) != 0 {
		t.Errorf("graph queried %d times, want 0", len(g.queries))
	}
}

func TestCustomMarkersAndRoles(t *testing.T) {
	g := &fakeGraph{hasRole: true}
	o := NewOracle(g, Config{
		EmergencyRoles:   []string{"TRAUMA"},
		EmergencyMarkers: []string{"code blue"},
	})

	pd, _ := o.Check(context.Background(), model.Request{
		DoctorID: "D4", PatientID: "P7", Message: "CODE BLUE in ward 3",
	}, needsContext())
	if !pd.BreakGlass {
		t.Fatalf("configured marker should trigger break-glass, got %+v", pd)
	}
	if len(g.rolesArg) != 1 || g.rolesArg[0] != "TRAUMA" {
		t.Errorf("role query got %v, want [TRAUMA]", g.rolesArg)
	}
}
