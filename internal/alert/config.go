package alert

// WebhookConfig defines one webhook alert destination.
type WebhookConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["denied", "blocked", "break_glass_used", "escalated"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp   string   `json:"timestamp"`
	RequestID   string   `json:"request_id"`
	Actor       string   `json:"actor"`
	Subject     string   `json:"subject"`
	Outcome     string   `json:"outcome"` // terminal status: "denied", "blocked", ...
	Reason      string   `json:"reason"`
	Mode        string   `json:"security_mode"`
	RiskScore   int      `json:"risk_score,omitempty"`
	AttackTypes []string `json:"attack_types,omitempty"`
	Type        string   `json:"type,omitempty"` // "break_glass_used", "escalated"
}
