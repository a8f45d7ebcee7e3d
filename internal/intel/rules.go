package intel

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vorion-labs/gauntlet/internal/model"
)

// minRulePatternLen guards against degenerate rules matching everything.
const minRulePatternLen = 16

// ruleMissThreshold is how many missed attacks a technique needs before a
// draft rule is synthesized for it.
const ruleMissThreshold = 2

// synthesizeRulesLocked groups false-negative turns by technique and drafts
// one rule per technique with enough evidence. Rules start disabled:
// evidence-derived patterns require human review before activation.
func (c *Collector) synthesizeRulesLocked() []model.DetectionRule {
	type group struct {
		contents   []string
		categories map[model.AttackCategory]int
		severity   model.Severity
	}
	groups := make(map[string]*group)

	for _, rec := range c.turns {
		if !rec.turn.Successful || rec.turn.Detection.Detected {
			continue
		}
		g := groups[rec.payload.Technique]
		if g == nil {
			g = &group{categories: make(map[model.AttackCategory]int), severity: model.SevLow}
			groups[rec.payload.Technique] = g
		}
		g.contents = append(g.contents, rec.payload.Content)
		g.categories[rec.payload.Category]++
		g.severity = model.MaxSeverity(g.severity, rec.payload.Severity)
	}

	techniques := make([]string, 0, len(groups))
	for t := range groups {
		techniques = append(techniques, t)
	}
	sort.Strings(techniques)

	var rules []model.DetectionRule
	for _, technique := range techniques {
		g := groups[technique]
		if len(g.contents) < ruleMissThreshold {
			continue
		}
		pattern := derivePattern(g.contents)
		if pattern == "" {
			continue
		}
		rules = append(rules, model.DetectionRule{
			ID:                  uuid.NewString(),
			Name:                "auto-" + technique,
			Description:         fmt.Sprintf("synthesized from %d missed %s attacks", len(g.contents), technique),
			Pattern:             pattern,
			Category:            dominantCategory(g.categories),
			Severity:            g.severity,
			ConfidenceThreshold: 0.7,
			Enabled:             false,
			CreatedAt:           time.Now().UTC(),
		})
	}
	return rules
}

// derivePattern escapes the first missed payload long enough to make a
// meaningful literal match.
func derivePattern(contents []string) string {
	for _, content := range contents {
		if len(content) >= minRulePatternLen {
			return regexp.QuoteMeta(content)
		}
	}
	return ""
}

// dominantCategory returns the most common category in the group, breaking
// ties alphabetically for determinism.
func dominantCategory(counts map[model.AttackCategory]int) model.AttackCategory {
	var best model.AttackCategory
	bestN := -1
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		cat := model.AttackCategory(c)
		if counts[cat] > bestN {
			best = cat
			bestN = counts[cat]
		}
	}
	return best
}
