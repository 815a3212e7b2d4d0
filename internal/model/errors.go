package model

import "fmt"

// StoreError marks a relationship-store failure. Authorization fails
// closed on it, but callers can still tell "denied" from "couldn't check".
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("graph store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// GenerationError marks a generation-capability failure. The pipeline
// surfaces it as a distinguishable failed outcome, never as an empty
// successful response.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("response generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
