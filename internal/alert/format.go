package alert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("aegisgraph: %s", event.Outcome),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Request:* %s", event.RequestID)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Actor:* %s → %s", event.Actor, event.Subject)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Mode:* %s", event.Mode)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Risk:* %d", event.RiskScore)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	switch {
	case event.RiskScore >= 90 || event.Type == "break_glass_used":
		severity = "critical"
	case event.RiskScore >= 70 || event.Outcome == "blocked":
		severity = "error"
	case event.Outcome == "denied" || event.Type == "escalated":
		severity = "warning"
	}

	summary := fmt.Sprintf("aegisgraph %s: %s → %s", event.Outcome, event.Actor, event.Subject)
	if len(event.AttackTypes) > 0 {
		summary += " (" + strings.Join(event.AttackTypes, ", ") + ")"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  summary,
			"severity": severity,
			"source":   "aegisgraph",
			"custom_details": map[string]any{
				"request_id":    event.RequestID,
				"security_mode": event.Mode,
				"risk_score":    event.RiskScore,
				"attack_types":  event.AttackTypes,
				"reason":        event.Reason,
			},
		},
	}
	return json.Marshal(payload)
}
