// Package escalate owns the self-healing security posture: a sliding
// window over refusal events decides when to tighten the mode, and a
// cooldown timer relaxes it again once the burst passes.
package escalate

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is how far back refusals count toward escalation.
	DefaultWindow = 60 * time.Second
	// DefaultThreshold is the refusal count at which escalation fires.
	DefaultThreshold = 3
)

// Tracker counts denial and block events in a sliding window. Safe for
// concurrent use. Events older than the window are pruned lazily on
// each operation, so an idle tracker holds stale timestamps but never
// reports them.
type Tracker struct {
	window    time.Duration
	threshold int
	now       func() time.Time

	mu     sync.Mutex
	events []time.Time
}

// NewTracker creates a Tracker. Non-positive window or threshold fall
// back to the defaults.
func NewTracker(window time.Duration, threshold int) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{window: window, threshold: threshold, now: time.Now}
}

// RecordDenial records an authorization refusal.
func (t *Tracker) RecordDenial() { t.record() }

// RecordBlock records a threat-screen block.
func (t *Tracker) RecordBlock() { t.record() }

func (t *Tracker) record() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.prune(now)
	t.events = append(t.events, now)
}

// ShouldEscalate reports whether the in-window event count has reached
// the threshold. Read-only with respect to the decision: calling it
// twice in a row gives the same answer.
func (t *Tracker) ShouldEscalate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.events) >= t.threshold
}

// Count returns the current in-window event count.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.events)
}

// Threshold returns the configured escalation threshold.
func (t *Tracker) Threshold() int { return t.threshold }

// Window returns the configured sliding window.
func (t *Tracker) Window() time.Duration { return t.window }

// Reset drops all recorded events. Called after an escalation fires so
// one burst causes exactly one mode transition.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.events = t.events[:0]
	t.mu.Unlock()
}

// prune drops events older than the window. Caller holds mu.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.events) && !t.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
