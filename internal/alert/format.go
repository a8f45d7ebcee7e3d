package alert

import (
	"encoding/json"
	"fmt"

	"github.com/vorion-labs/gauntlet/internal/arena"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event AlertEvent) ([]byte, error) {
	fields := []any{
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Session:* %s", event.Session)},
	}
	if event.Type == string(arena.EventNovelDiscovery) {
		fields = append(fields,
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Category:* %s", event.Category)},
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Technique:* %s", event.Technique)},
		)
	} else {
		fields = append(fields,
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Detected:* %d/%d", event.Detected, event.Attempted)},
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Accuracy:* %.1f%%", event.Accuracy*100)},
		)
	}

	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("gauntlet: %s", event.Type),
				},
			},
			map[string]any{
				"type":   "section",
				"fields": fields,
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event AlertEvent) ([]byte, error) {
	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("gauntlet %s: %s", event.Type, event.Session),
			"severity": severityFor(event),
			"source":   "gauntlet",
			"custom_details": map[string]any{
				"session_id": event.SessionID,
				"category":   event.Category,
				"technique":  event.Technique,
				"attempted":  event.Attempted,
				"detected":   event.Detected,
				"missed":     event.Missed,
				"accuracy":   event.Accuracy,
			},
		},
	}
	return json.Marshal(payload)
}

// severityFor maps alert outcomes to PagerDuty severities. A discovered
// vector means a defense hole and pages at critical; sessions with misses
// page by how leaky they were.
func severityFor(event AlertEvent) string {
	if event.Type == string(arena.EventNovelDiscovery) {
		return "critical"
	}
	switch {
	case event.Missed > 0 && event.Accuracy < 0.5:
		return "error"
	case event.Missed > 0:
		return "warning"
	default:
		return "info"
	}
}
