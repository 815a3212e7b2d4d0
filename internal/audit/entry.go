package audit

// Entry is one line in the hash-chained JSONL audit log. All fields are
// flat scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp  string   `json:"ts"`
	RequestID  string   `json:"request_id"`
	Actor      string   `json:"actor"`
	Subject    string   `json:"subject,omitempty"`
	Role       string   `json:"role,omitempty"`
	Status     string   `json:"status"`
	Mode       string   `json:"mode"`
	ReasonCode string   `json:"reason_code,omitempty"`
	Intent     string   `json:"intent,omitempty"`
	Scope      string   `json:"scope,omitempty"`
	BreakGlass bool     `json:"break_glass,omitempty"`
	RiskScore  int      `json:"risk_score,omitempty"`
	AttackTags []string `json:"attack_tags,omitempty"`
	ConfigHash string   `json:"config_hash,omitempty"`
	PrevHash   string   `json:"prev_hash"`
}
