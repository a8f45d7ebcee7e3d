package agent

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// sentinel matches known injection phrasings literally. High confidence,
// blocks outright on a hit.
type sentinel struct{ id string }

func newSentinel() Blue { return &sentinel{id: "blue-sentinel"} }

func (s *sentinel) ID() string           { return s.id }
func (s *sentinel) Variant() BlueVariant { return BlueSentinel }

// sentinelSignatures map literal phrases to the threat they indicate.
var sentinelSignatures = []struct {
	phrase   string
	threat   string
	severity model.Severity
}{
	{"ignore previous", "instruction override", model.SevHigh},
	{"ignore all previous", "instruction override", model.SevHigh},
	{"system prompt", "system prompt extraction", model.SevHigh},
	{"initial instructions", "system prompt extraction", model.SevHigh},
	{"you are now", "role override", model.SevCritical},
	{"without restrictions", "role override", model.SevCritical},
	{"new system directive", "context smuggling", model.SevHigh},
	{"as your developer", "authority claim", model.SevMedium},
}

func (s *sentinel) Analyze(_ context.Context, content string, _ []string) (*model.DetectionResult, error) {
	start := time.Now()
	lower := strings.ToLower(content)

	var threats []string
	severity := model.SevLow
	for _, sig := range sentinelSignatures {
		if strings.Contains(lower, sig.phrase) {
			threats = append(threats, sig.threat)
			severity = model.MaxSeverity(severity, sig.severity)
		}
	}

	if len(threats) == 0 {
		return &model.DetectionResult{
			Action:      model.ActionAllow,
			Confidence:  0.1,
			Explanation: "no known injection signatures matched",
			Latency:     time.Since(start),
		}, nil
	}

	return &model.DetectionResult{
		Detected:    true,
		Action:      model.ActionBlock,
		Confidence:  0.95,
		Severity:    severity,
		Category:    model.CategoryPromptInjection,
		Threats:     threats,
		Explanation: "matched known injection signatures: " + strings.Join(threats, ", "),
		Latency:     time.Since(start),
	}, nil
}

// decoder looks for encoded or mangled content, decodes what it can, and
// rescans the plaintext with the sentinel signature table.
type decoder struct{ id string }

func newDecoder() Blue { return &decoder{id: "blue-decoder"} }

func (d *decoder) ID() string           { return d.id }
func (d *decoder) Variant() BlueVariant { return BlueDecoder }

var (
	base64ChunkRe = regexp.MustCompile(`[A-Za-z0-9+/]{16,}={0,2}`)
	leetRe        = regexp.MustCompile(`\b\w*[a-z]+[0-9]+[a-z]+\w*\b`)
)

// deleet undoes the common digit-for-letter substitutions.
var deleet = strings.NewReplacer("0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t")

func (d *decoder) Analyze(_ context.Context, content string, _ []string) (*model.DetectionResult, error) {
	start := time.Now()

	var threats []string
	var decoded []string

	for _, chunk := range base64ChunkRe.FindAllString(content, -1) {
		raw, err := base64.StdEncoding.DecodeString(chunk)
		if err != nil || !printable(raw) {
			continue
		}
		decoded = append(decoded, string(raw))
		threats = append(threats, "base64-encoded content")
	}

	lower := strings.ToLower(content)
	if len(leetRe.FindAllString(lower, -1)) >= 3 {
		decoded = append(decoded, deleet.Replace(lower))
		threats = append(threats, "leetspeak obfuscation")
	}

	// Rescan decoded plaintext for injection phrasing.
	severity := model.SevMedium
	for _, text := range decoded {
		plain := strings.ToLower(text)
		for _, sig := range sentinelSignatures {
			if strings.Contains(plain, sig.phrase) {
				threats = append(threats, "hidden "+sig.threat)
				severity = model.MaxSeverity(severity, sig.severity)
			}
		}
	}

	if len(threats) == 0 {
		return &model.DetectionResult{
			Action:      model.ActionAllow,
			Confidence:  0.1,
			Explanation: "no encoded content found",
			Latency:     time.Since(start),
		}, nil
	}

	return &model.DetectionResult{
		Detected:    true,
		Action:      model.ActionQuarantine,
		Confidence:  0.8,
		Severity:    severity,
		Category:    model.CategoryObfuscation,
		Threats:     threats,
		Explanation: "decoded obfuscated content: " + strings.Join(threats, ", "),
		Latency:     time.Since(start),
	}, nil
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 && c != '\n' && c != '\t' {
			return false
		}
		if c > 0x7e {
			return false
		}
	}
	return true
}

// guardian scores softer manipulation signals that literal matching misses.
// It never blocks on its own; it flags or quarantines by accumulated score.
type guardian struct{ id string }

func newGuardian() Blue { return &guardian{id: "blue-guardian"} }

func (g *guardian) ID() string           { return g.id }
func (g *guardian) Variant() BlueVariant { return BlueGuardian }

var guardianSignals = []struct {
	phrase string
	threat string
	weight float64
}{
	{"urgent", "urgency pressure", 0.2},
	{"my job depends", "urgency pressure", 0.3},
	{"hypothetically", "hypothetical framing", 0.3},
	{"pretend", "roleplay framing", 0.3},
	{"roleplay", "roleplay framing", 0.3},
	{"i am authorized", "authority claim", 0.3},
	{"skip the warnings", "safeguard evasion", 0.4},
	{"no guardrails", "safeguard evasion", 0.4},
	{"told not to say", "safeguard evasion", 0.4},
}

func (g *guardian) Analyze(_ context.Context, content string, _ []string) (*model.DetectionResult, error) {
	start := time.Now()
	lower := strings.ToLower(content)

	var threats []string
	score := 0.0
	for _, sig := range guardianSignals {
		if strings.Contains(lower, sig.phrase) {
			threats = append(threats, sig.threat)
			score += sig.weight
		}
	}

	if score >= 1 {
		score = 0.99
	}
	res := &model.DetectionResult{
		Confidence:  score,
		Category:    model.CategorySocialEngineering,
		Latency:     time.Since(start),
		Explanation: "manipulation signal score below threshold",
		Action:      model.ActionAllow,
	}
	switch {
	case score >= 0.6:
		res.Detected = true
		res.Action = model.ActionQuarantine
		res.Severity = model.SevHigh
		res.Threats = threats
		res.Explanation = "strong manipulation signals: " + strings.Join(threats, ", ")
	case score >= 0.3:
		res.Detected = true
		res.Action = model.ActionFlag
		res.Severity = model.SevMedium
		res.Threats = threats
		res.Explanation = "manipulation signals present: " + strings.Join(threats, ", ")
	}
	return res, nil
}
