package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entries := []Entry{
		{RequestID: "req-1", Actor: "D1", Subject: "P101", Status: "completed", Mode: "NORMAL"},
		{RequestID: "req-2", Actor: "D1", Subject: "P999", Status: "denied", Mode: "NORMAL", ReasonCode: "no_treats_relationship"},
		{RequestID: "req-3", Actor: "D2", Status: "blocked", Mode: "STRICT", RiskScore: 100, AttackTags: []string{"keyword_ssn"}},
	}
	for _, e := range entries {
		if err := log.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	res := Verify(path)
	if !res.Valid {
		t.Fatalf("chain invalid: %s (line %d)", res.Error, res.ErrorLine)
	}
	if res.Lines != 3 {
		t.Errorf("lines = %d, want 3", res.Lines)
	}
}

func TestReopenContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := log.Record(Entry{RequestID: "req-1", Actor: "D1", Status: "completed", Mode: "NORMAL"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	log.Close()

	log, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := log.Record(Entry{RequestID: "req-2", Actor: "D1", Status: "denied", Mode: "NORMAL"}); err != nil {
		t.Fatalf("Record after reopen: %v", err)
	}
	log.Close()

	if res := Verify(path); !res.Valid {
		t.Errorf("chain broken across reopen: %s (line %d)", res.Error, res.ErrorLine)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log.Record(Entry{RequestID: "req-1", Actor: "D1", Status: "denied", Mode: "NORMAL"})
	log.Record(Entry{RequestID: "req-2", Actor: "D1", Status: "denied", Mode: "NORMAL"})
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	tampered := strings.Replace(string(data), `"denied"`, `"completed"`, 1)
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatalf("write tampered log: %v", err)
	}

	res := Verify(path)
	if res.Valid {
		t.Fatal("tampered log must not verify")
	}
	if res.ErrorLine != 2 {
		t.Errorf("error line = %d, want 2 (first link after the edit)", res.ErrorLine)
	}
}

func TestFirstEntryUsesGenesisHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log.Record(Entry{RequestID: "req-1", Actor: "D1", Status: "completed", Mode: "NORMAL"})
	log.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), GenesisHash) {
		t.Error("first entry must chain from the genesis hash")
	}
}
