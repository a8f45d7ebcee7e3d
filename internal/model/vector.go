package model

import "time"

// AttackVector is a catalogued discovery: an attack that succeeded without
// being detected. Vectors are append-only and deduplicated globally by
// content hash for the lifetime of the collector.
type AttackVector struct {
	ID           string         `json:"id"`
	Hash         string         `json:"hash"`
	Category     AttackCategory `json:"category"`
	Subcategory  string         `json:"subcategory"`
	Technique    string         `json:"technique"`
	Payload      string         `json:"payload"`
	Description  string         `json:"description"`
	Severity     Severity       `json:"severity"`
	Indicators   []string       `json:"indicators"`
	Generation   int            `json:"generation"`
	DiscoveredBy string         `json:"discovered_by"`
	SessionID    string         `json:"session_id"`
	DiscoveredAt time.Time      `json:"discovered_at"`
	SuccessCount int            `json:"success_count"`
	AttemptCount int            `json:"attempt_count"`
	BypassCount  int            `json:"bypass_count"`
	Status       VectorStatus   `json:"status"`
}

// DetectionRule is a draft rule synthesized from clusters of missed attacks.
// Generated rules start disabled: evidence-derived rules require human
// review before activation.
type DetectionRule struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	Pattern             string         `json:"pattern"`
	Category            AttackCategory `json:"category"`
	Severity            Severity       `json:"severity"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	Enabled             bool           `json:"enabled"`
	CreatedAt           time.Time      `json:"created_at"`
}
