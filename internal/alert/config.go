package alert

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["session_complete", "novel_discovery", ...]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	Session   string  `json:"session"`
	Category  string  `json:"category,omitempty"`
	Technique string  `json:"technique,omitempty"`
	Payload   string  `json:"payload,omitempty"`
	Attempted int     `json:"attempted,omitempty"`
	Detected  int     `json:"detected,omitempty"`
	Missed    int     `json:"missed,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}
