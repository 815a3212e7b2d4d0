package model

import (
	"strings"
	"testing"
)

func TestParseModeCaseInsensitive(t *testing.T) {
	cases := map[string]Mode{
		"normal":      ModeNormal,
		"NORMAL":      ModeNormal,
		"Strict":      ModeStrict,
		"strict_mode": ModeStrict,
		"STRICT_MODE": ModeStrict,
		"lockdown":    ModeLockdown,
		" LOCKDOWN ":  ModeLockdown,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil {
			t.Errorf("ParseMode(%q): unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseMode(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "PANIC", "normal-ish", "lock down"} {
		if _, err := ParseMode(in); err == nil {
			t.Errorf("ParseMode(%q): expected error, got nil", in)
		}
	}
}

func TestEnsureRequestID(t *testing.T) {
	r := Request{UserID: "u1"}
	r.EnsureRequestID()
	if !strings.HasPrefix(r.RequestID, "req-") {
		t.Errorf("expected generated req- prefix, got %q", r.RequestID)
	}

	r2 := Request{RequestID: "caller-supplied"}
	r2.EnsureRequestID()
	if r2.RequestID != "caller-supplied" {
		t.Errorf("caller-supplied ID must be preserved, got %q", r2.RequestID)
	}
}

func TestRequestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestClampRisk(t *testing.T) {
	cases := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {42, 42}, {100, 100}, {250, 100},
	}
	for _, c := range cases {
		if got := ClampRisk(c.in); got != c.want {
			t.Errorf("ClampRisk(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestClampUnit(t *testing.T) {
	if got := ClampUnit(-0.1); got != 0 {
		t.Errorf("ClampUnit(-0.1) = %f, want 0", got)
	}
	if got := ClampUnit(1.5); got != 1 {
		t.Errorf("ClampUnit(1.5) = %f, want 1", got)
	}
	if got := ClampUnit(0.25); got != 0.25 {
		t.Errorf("ClampUnit(0.25) = %f, want 0.25", got)
	}
}

func TestOutcomeRefused(t *testing.T) {
	for _, s := range []Status{StatusDenied, StatusBlocked, StatusLockdown, StatusFailed} {
		if !(Outcome{Status: s}).Refused() {
			t.Errorf("status %s should be a refusal", s)
		}
	}
	done := Outcome{Status: StatusCompleted, Response: &ResponseDecision{FinalText: "ok"}}
	if done.Refused() {
		t.Error("completed outcome should not be a refusal")
	}
	if done.FinalText() != "ok" {
		t.Errorf("FinalText = %q, want ok", done.FinalText())
	}
	if (Outcome{Status: StatusDenied}).FinalText() != "" {
		t.Error("refusal outcome must carry no final text")
	}
}
