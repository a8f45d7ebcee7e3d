package sandbox

import (
	"regexp"
	"strings"
	"time"
)

// BreachCategory labels what kind of containment indicator matched.
type BreachCategory string

const (
	BreachNetwork    BreachCategory = "network"
	BreachCodeExec   BreachCategory = "code_execution"
	BreachSecret     BreachCategory = "secret_exfiltration"
	BreachSystemFile BreachCategory = "system_file"
	BreachEndpoint   BreachCategory = "blocked_endpoint"
)

// Breach is one recorded containment indicator. Breaches are observability
// signals: recording one never aborts the turn that produced it.
type Breach struct {
	Direction string         `json:"direction"` // "input" or "response"
	Category  BreachCategory `json:"category"`
	Pattern   string         `json:"pattern"`
	Excerpt   string         `json:"excerpt"`
	At        time.Time      `json:"at"`
}

// detector is one containment check: a category plus its compiled patterns.
type detector struct {
	category BreachCategory
	patterns []*regexp.Regexp
}

// detectors run in fixed priority order; the first category that matches a
// given content string records the breach and screening stops for it.
var detectors = []detector{
	{
		category: BreachNetwork,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`https?://[^\s"'<>]+`),
			regexp.MustCompile(`(?i)\b(?:curl|wget|fetch)\s+\S+`),
			regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}(?::\d{2,5})?\b`),
		},
	},
	{
		category: BreachCodeExec,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:eval|exec|subprocess|os\.system|child_process)\s*\(`),
			regexp.MustCompile("(?s)```(?:sh|bash|python)?\\s*(?:#!|rm -rf|sudo )"),
			regexp.MustCompile(`(?i)\bimport\s+(?:os|subprocess)\b`),
		},
	},
	{
		category: BreachSecret,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:password|passwd|secret|token|api_key|apikey|auth)[ \t]*[=:][ \t]*\S+`),
			regexp.MustCompile(`sk-[a-zA-Z0-9\-]{20,}`),
			regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.]{20,}`),
			regexp.MustCompile(`\b[a-f0-9]{64,}\b`),
		},
	},
	{
		category: BreachSystemFile,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`/etc/(?:passwd|shadow|sudoers|hosts)\b`),
			regexp.MustCompile(`(?:/home|/root|/var/log)/\S+`),
			regexp.MustCompile(`(?i)\b(?:C:\\Windows|%SYSTEMROOT%)\\\S+`),
		},
	},
}

// screen runs the fixed-order detectors against content and returns the
// first matching breach, or nil. Blocked endpoint patterns from the
// session's containment rules are checked after the builtin categories.
func screen(content, direction string, blockedEndpoints []string, now time.Time) *Breach {
	for _, d := range detectors {
		for _, re := range d.patterns {
			if loc := re.FindStringIndex(content); loc != nil {
				return &Breach{
					Direction: direction,
					Category:  d.category,
					Pattern:   re.String(),
					Excerpt:   excerpt(content, loc[0], loc[1]),
					At:        now,
				}
			}
		}
	}
	lower := strings.ToLower(content)
	for _, ep := range blockedEndpoints {
		if ep != "" && strings.Contains(lower, strings.ToLower(ep)) {
			return &Breach{
				Direction: direction,
				Category:  BreachEndpoint,
				Pattern:   ep,
				Excerpt:   ep,
				At:        now,
			}
		}
	}
	return nil
}

// excerpt returns the matched span clamped to a readable window.
func excerpt(content string, start, end int) string {
	const window = 80
	if end-start > window {
		end = start + window
	}
	return content[start:end]
}
