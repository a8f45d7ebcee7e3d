package model

// Severity classifies how dangerous an attack or threat is.
type Severity string

const (
	SevCritical Severity = "critical"
	SevHigh     Severity = "high"
	SevMedium   Severity = "medium"
	SevLow      Severity = "low"
)

// SevRank maps severity to a comparable integer. Higher is more severe.
var SevRank = map[Severity]int{
	SevLow:      0,
	SevMedium:   1,
	SevHigh:     2,
	SevCritical: 3,
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if SevRank[b] > SevRank[a] {
		return b
	}
	return a
}

// DetectionAction is the verdict a blue agent (or an aggregate of blue
// agents) reaches for one attack payload.
type DetectionAction string

const (
	ActionAllow      DetectionAction = "allow"
	ActionFlag       DetectionAction = "flag"
	ActionQuarantine DetectionAction = "quarantine"
	ActionBlock      DetectionAction = "block"
)

// ActionRank maps actions to a comparable integer. Higher is more
// restrictive; aggregation always takes the most restrictive action present.
var ActionRank = map[DetectionAction]int{
	ActionAllow:      0,
	ActionFlag:       1,
	ActionQuarantine: 2,
	ActionBlock:      3,
}

// AttackCategory labels the kind of adversarial technique a payload uses.
type AttackCategory string

const (
	CategoryPromptInjection   AttackCategory = "prompt_injection"
	CategoryJailbreak         AttackCategory = "jailbreak"
	CategoryObfuscation       AttackCategory = "obfuscation"
	CategoryExfiltration      AttackCategory = "data_exfiltration"
	CategorySocialEngineering AttackCategory = "social_engineering"
)

// SessionStatus is the lifecycle state of an arena session.
// Transitions: pending -> running -> {completed | terminated | failed}.
// All three terminal states are final.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusRunning    SessionStatus = "running"
	StatusCompleted  SessionStatus = "completed"
	StatusTerminated SessionStatus = "terminated"
	StatusFailed     SessionStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusTerminated || s == StatusFailed
}

// VectorStatus is the review state of a catalogued attack vector.
type VectorStatus string

const (
	VectorPending   VectorStatus = "pending"
	VectorConfirmed VectorStatus = "confirmed"
	VectorRetired   VectorStatus = "retired"
)
