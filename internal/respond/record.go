// Package respond generates the final answer for an authorized request.
// What the model is allowed to see is decided structurally: the scope
// projection picks record fields before any prompt text exists, so an
// unprojected category can never leak through prompt wording.
package respond

import (
	"context"
	"fmt"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

// Record is the patient data held in the graph, as fetched for generation.
type Record struct {
	PatientID   string
	Name        string
	Conditions  []string
	Medications []string
	Allergies   []string
}

// Fetcher loads a patient record for generation.
type Fetcher interface {
	Patient(ctx context.Context, patientID string) (Record, error)
}

// Querier is the subset of the graph client the fetcher needs.
type Querier interface {
	Run(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error)
}

const patientQuery = `
MATCH (p:Patient {id: $patient_id})
RETURN p.name AS name,
       p.conditions AS conditions,
       p.medications AS medications,
       p.allergies AS allergies`

// GraphFetcher loads patient records from the graph store.
type GraphFetcher struct {
	graph Querier
}

// NewGraphFetcher creates a GraphFetcher.
func NewGraphFetcher(g Querier) *GraphFetcher {
	return &GraphFetcher{graph: g}
}

// Patient fetches one patient record. A missing patient is an error:
// by the time generation runs the authorization gate has already proven
// a relationship to this patient, so absence means the store is inconsistent.
func (f *GraphFetcher) Patient(ctx context.Context, patientID string) (Record, error) {
	rows, err := f.graph.Run(ctx, patientQuery, map[string]any{"patient_id": patientID})
	if err != nil {
		return Record{}, &model.StoreError{Op: "fetch patient record", Err: err}
	}
	if len(rows) == 0 {
		return Record{}, fmt.Errorf("patient %s not found in graph", patientID)
	}

	row := rows[0]
	return Record{
		PatientID:   patientID,
		Name:        stringField(row, "name"),
		Conditions:  stringsField(row, "conditions"),
		Medications: stringsField(row, "medications"),
		Allergies:   stringsField(row, "allergies"),
	}, nil
}

func stringField(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func stringsField(row map[string]any, key string) []string {
	raw, ok := row[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
