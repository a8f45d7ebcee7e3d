package model

import "time"

// ContainmentRules constrain what the sandboxed target may reach per turn.
// Containment here is pattern-based content inspection, not an OS boundary.
type ContainmentRules struct {
	AllowedEndpoints []string `yaml:"allowed_endpoints" json:"allowed_endpoints"`
	BlockedEndpoints []string `yaml:"blocked_endpoints" json:"blocked_endpoints"`
	TokenBudget      int      `yaml:"token_budget" json:"token_budget"`
	NetworkIsolated  bool     `yaml:"network_isolated" json:"network_isolated"`
}

// SessionConfig describes one adversarial run before it starts.
type SessionConfig struct {
	Name           string           `yaml:"name" json:"name"`
	RedAgents      []string         `yaml:"red_agents" json:"red_agents"`
	BlueAgents     []string         `yaml:"blue_agents" json:"blue_agents"`
	Target         string           `yaml:"target" json:"target"`
	MaxTurns       int              `yaml:"max_turns" json:"max_turns"`
	Timeout        time.Duration    `yaml:"timeout" json:"timeout"`
	Categories     []AttackCategory `yaml:"categories" json:"categories"`
	MutatePayloads bool             `yaml:"mutate_payloads" json:"mutate_payloads"`
	PersistTurns   bool             `yaml:"persist_turns" json:"persist_turns"`
	Containment    ContainmentRules `yaml:"containment" json:"containment"`
}

// SessionResults is the running aggregate for one session. Updated after
// every turn; finalized (accuracy, mean latency) when the session ends.
type SessionResults struct {
	TotalTurns        int           `json:"total_turns"`
	AttacksAttempted  int           `json:"attacks_attempted"`
	AttacksSuccessful int           `json:"attacks_successful"`
	AttacksDetected   int           `json:"attacks_detected"`
	AttacksMissed     int           `json:"attacks_missed"`
	NovelVectors      int           `json:"novel_vectors"`
	FalsePositives    int           `json:"false_positives"`
	DetectionAccuracy float64       `json:"detection_accuracy"`
	MeanLatency       time.Duration `json:"mean_latency"`
}

// SessionTurn is one attack/defend exchange. Immutable once recorded.
type SessionTurn struct {
	Number        int             `json:"number"`
	RedAgent      string          `json:"red_agent"`
	Role          string          `json:"role"`
	Attack        string          `json:"attack"`
	Response      string          `json:"response,omitempty"`
	Category      AttackCategory  `json:"category"`
	Successful    bool            `json:"successful"`
	Detection     DetectionResult `json:"detection"`
	FalsePositive bool            `json:"false_positive"`
	FalseNegative bool            `json:"false_negative"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       time.Time       `json:"ended_at"`
}

// Duration is the wall-clock time the turn took.
func (t SessionTurn) Duration() time.Duration {
	return t.EndedAt.Sub(t.StartedAt)
}

// ArenaSession is one adversarial run. Owned exclusively by the Arena while
// running; read-only history once the status is terminal.
type ArenaSession struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	RedAgents  []string       `json:"red_agents"`
	BlueAgents []string       `json:"blue_agents"`
	Target     string         `json:"target"`
	Config     SessionConfig  `json:"config"`
	Status     SessionStatus  `json:"status"`
	Results    SessionResults `json:"results"`
	Turns      []SessionTurn  `json:"turns,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at,omitempty"`
}
