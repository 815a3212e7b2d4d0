package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	cfg, hash, err := LoadWithHash(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadWithHash: %v", err)
	}
	if cfg.Escalation.Threshold != 3 || cfg.Escalation.Window != 60*time.Second {
		t.Errorf("unexpected escalation defaults: %+v", cfg.Escalation)
	}
	if cfg.Escalation.Cooldown != 600*time.Second {
		t.Errorf("cooldown default = %s, want 600s", cfg.Escalation.Cooldown)
	}
	if cfg.Safety.BlockThreshold != 70 {
		t.Errorf("block threshold default = %d, want 70", cfg.Safety.BlockThreshold)
	}
	if len(cfg.Authz.EmergencyRoles) == 0 || cfg.Authz.EmergencyRoles[0] != "ER" {
		t.Errorf("expected ER in default emergency roles, got %v", cfg.Authz.EmergencyRoles)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("hash missing prefix: %s", hash)
	}
}

func TestOverlayKeepsUnspecifiedDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
escalation:
  threshold: 5
authz:
  emergency_markers: ["code blue"]
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Escalation.Threshold != 5 {
		t.Errorf("threshold = %d, want 5", cfg.Escalation.Threshold)
	}
	// Unspecified fields keep their defaults
	if cfg.Escalation.Window != 60*time.Second {
		t.Errorf("window = %s, want default 60s", cfg.Escalation.Window)
	}
	if len(cfg.Authz.EmergencyMarkers) != 1 || cfg.Authz.EmergencyMarkers[0] != "code blue" {
		t.Errorf("markers = %v, want [code blue]", cfg.Authz.EmergencyMarkers)
	}
}

func TestInvalidYAMLRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestHashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	os.WriteFile(a, []byte("server:\n  port: 8000\n"), 0600)
	os.WriteFile(b, []byte("server:\n  port: 9000\n"), 0600)

	_, ha, err := LoadWithHash(a)
	if err != nil {
		t.Fatal(err)
	}
	_, hb, err := LoadWithHash(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha == hb {
		t.Error("different config bytes must hash differently")
	}
}
