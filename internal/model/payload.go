package model

import "time"

// AttackPayload is one generated attack, produced by a red agent.
type AttackPayload struct {
	Category    AttackCategory `json:"category"`
	Subcategory string         `json:"subcategory"`
	Technique   string         `json:"technique"`
	Content     string         `json:"content"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Indicators  []string       `json:"indicators"`
}

// DetectionResult is a blue agent's verdict on one payload, or the
// deterministic aggregate across all blue agents for a turn.
type DetectionResult struct {
	Detected    bool            `json:"detected"`
	Action      DetectionAction `json:"action"`
	Confidence  float64         `json:"confidence"`
	Severity    Severity        `json:"severity,omitempty"`
	Category    AttackCategory  `json:"category,omitempty"`
	Subcategory string          `json:"subcategory,omitempty"`
	Threats     []string        `json:"threats,omitempty"`
	Explanation string          `json:"explanation"`
	Latency     time.Duration   `json:"latency"`
}
