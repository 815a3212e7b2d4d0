package escalate

import (
	"sync"
	"time"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

// DefaultCooldown is how long an escalated posture holds before
// relaxing back to NORMAL.
const DefaultCooldown = 600 * time.Second

// Controller owns the process-wide security mode. Escalation only ever
// tightens NORMAL to STRICT; LOCKDOWN is reachable by operator action
// alone. Safe for concurrent use.
type Controller struct {
	cooldown time.Duration
	onChange func(from, to model.Mode, reason string)

	mu     sync.Mutex
	mode   model.Mode
	revert *time.Timer
}

// NewController creates a Controller starting in NORMAL. A non-positive
// cooldown falls back to the default. onChange, if non-nil, is called
// outside the lock after every transition.
func NewController(cooldown time.Duration, onChange func(from, to model.Mode, reason string)) *Controller {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Controller{cooldown: cooldown, onChange: onChange, mode: model.ModeNormal}
}

// CurrentMode returns the mode in effect right now.
func (c *Controller) CurrentMode() model.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode applies an operator override. Any pending automatic revert is
// cancelled: a mode an operator set stays until an operator changes it
// or a later escalation fires.
func (c *Controller) SetMode(m model.Mode) {
	c.mu.Lock()
	from := c.mode
	c.mode = m
	c.cancelRevertLocked()
	c.mu.Unlock()

	if from != m {
		c.notify(from, m, "operator_override")
	}
}

// Escalate tightens the posture in response to a refusal burst.
// NORMAL becomes STRICT and a revert is scheduled; a burst while
// already STRICT refreshes the revert timer; LOCKDOWN is untouched.
func (c *Controller) Escalate() {
	c.mu.Lock()
	from := c.mode
	switch from {
	case model.ModeLockdown:
		c.mu.Unlock()
		return
	case model.ModeStrict:
		c.scheduleRevertLocked()
		c.mu.Unlock()
		return
	}
	c.mode = model.ModeStrict
	c.scheduleRevertLocked()
	c.mu.Unlock()

	c.notify(from, model.ModeStrict, "escalation_threshold")
}

// Close cancels any pending revert timer.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelRevertLocked()
	c.mu.Unlock()
}

// scheduleRevertLocked arms (or re-arms) the cooldown revert. Caller
// holds mu.
func (c *Controller) scheduleRevertLocked() {
	c.cancelRevertLocked()
	c.revert = time.AfterFunc(c.cooldown, c.revertToNormal)
}

func (c *Controller) cancelRevertLocked() {
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
}

// revertToNormal fires when the cooldown elapses. Only an unexpired
// STRICT posture relaxes; an operator override in the meantime wins.
func (c *Controller) revertToNormal() {
	c.mu.Lock()
	if c.mode != model.ModeStrict {
		c.mu.Unlock()
		return
	}
	c.mode = model.ModeNormal
	c.revert = nil
	c.mu.Unlock()

	c.notify(model.ModeStrict, model.ModeNormal, "cooldown_expired")
}

func (c *Controller) notify(from, to model.Mode, reason string) {
	if c.onChange != nil {
		c.onChange(from, to, reason)
	}
}
