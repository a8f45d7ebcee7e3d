// Package intel accumulates turn outcomes across sessions and mines them
// for novel attack vectors, recurring payload patterns, defense gaps, and
// draft detection rules.
package intel

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vorion-labs/gauntlet/internal/model"
)

// minPatternWindow is the minimum character length for a counted phrase
// window; shorter windows are noise.
const minPatternWindow = 10

// DefenseGap is a cluster of undetected successful attacks sharing a
// category and technique.
type DefenseGap struct {
	Category  model.AttackCategory `json:"category"`
	Technique string               `json:"technique"`
	Misses    int                  `json:"misses"`
	Example   string               `json:"example"`
	FirstSeen time.Time            `json:"first_seen"`
	LastSeen  time.Time            `json:"last_seen"`
}

// PatternInsight is one recurring payload phrase with its outcome stats.
type PatternInsight struct {
	Pattern        string  `json:"pattern"`
	Frequency      int     `json:"frequency"`
	SuccessRate    float64 `json:"success_rate"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// Insights is the full mining output at a point in time.
type Insights struct {
	NovelVectors []model.AttackVector  `json:"novel_vectors"`
	Rules        []model.DetectionRule `json:"rules"`
	Patterns     []PatternInsight      `json:"patterns"`
	Gaps         []DefenseGap          `json:"gaps"`
}

// turnRecord is one collected turn with its payload and verdict.
type turnRecord struct {
	turn    model.SessionTurn
	payload model.AttackPayload
}

type patternStat struct {
	frequency     int
	successes     int
	confidenceSum float64
}

// Collector is the stateful accumulator. Safe for concurrent use by
// multiple running sessions; vector deduplication by content hash stays
// correct under concurrent discovery.
type Collector struct {
	mu       sync.Mutex
	turns    []turnRecord
	patterns map[string]*patternStat
	vectors  map[string]*model.AttackVector // keyed by content hash
	order    []string                       // hash insertion order
	gaps     map[string]*DefenseGap         // keyed by category|technique
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		patterns: make(map[string]*patternStat),
		vectors:  make(map[string]*model.AttackVector),
		gaps:     make(map[string]*DefenseGap),
	}
}

// CollectTurnData records one completed turn: pattern-frequency counters
// over the attack content, and a defense gap entry when the turn was a
// false negative.
func (c *Collector) CollectTurnData(turn model.SessionTurn, payload model.AttackPayload, detection model.DetectionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turnRecord{turn: turn, payload: payload})

	for _, window := range phraseWindows(payload.Content) {
		stat := c.patterns[window]
		if stat == nil {
			stat = &patternStat{}
			c.patterns[window] = stat
		}
		stat.frequency++
		if turn.Successful {
			stat.successes++
		}
		stat.confidenceSum += detection.Confidence
	}

	if turn.Successful && !detection.Detected {
		key := string(payload.Category) + "|" + payload.Technique
		gap := c.gaps[key]
		if gap == nil {
			gap = &DefenseGap{
				Category:  payload.Category,
				Technique: payload.Technique,
				Example:   payload.Content,
				FirstSeen: turn.EndedAt,
			}
			c.gaps[key] = gap
		}
		gap.Misses++
		gap.LastSeen = turn.EndedAt
	}
}

// RecordNovelVector catalogues the payload if its content hash is unseen,
// returning the new vector. Re-discoveries return nil and only bump the
// existing vector's counters.
func (c *Collector) RecordNovelVector(payload model.AttackPayload, discoveredBy, sessionID string) *model.AttackVector {
	hash := ContentHash(payload.Content)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.vectors[hash]; ok {
		existing.AttemptCount++
		existing.SuccessCount++
		existing.BypassCount++
		return nil
	}

	v := &model.AttackVector{
		ID:           uuid.NewString(),
		Hash:         hash,
		Category:     payload.Category,
		Subcategory:  payload.Subcategory,
		Technique:    payload.Technique,
		Payload:      payload.Content,
		Description:  payload.Description,
		Severity:     payload.Severity,
		Indicators:   append([]string(nil), payload.Indicators...),
		Generation:   0,
		DiscoveredBy: discoveredBy,
		SessionID:    sessionID,
		DiscoveredAt: time.Now().UTC(),
		SuccessCount: 1,
		AttemptCount: 1,
		BypassCount:  1,
		Status:       model.VectorPending,
	}
	c.vectors[hash] = v
	c.order = append(c.order, hash)

	out := *v
	return &out
}

// GenerateInsights returns a snapshot of everything mined so far.
func (c *Collector) GenerateInsights() *Insights {
	c.mu.Lock()
	defer c.mu.Unlock()

	ins := &Insights{
		NovelVectors: c.vectorsLocked(),
		Rules:        c.synthesizeRulesLocked(),
		Patterns:     c.patternInsightsLocked(),
		Gaps:         c.gapsLocked(),
	}
	return ins
}

// Vectors returns all catalogued vectors in discovery order.
func (c *Collector) Vectors() []model.AttackVector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vectorsLocked()
}

func (c *Collector) vectorsLocked() []model.AttackVector {
	out := make([]model.AttackVector, 0, len(c.order))
	for _, h := range c.order {
		out = append(out, *c.vectors[h])
	}
	return out
}

func (c *Collector) gapsLocked() []DefenseGap {
	out := make([]DefenseGap, 0, len(c.gaps))
	for _, g := range c.gaps {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Misses != out[j].Misses {
			return out[i].Misses > out[j].Misses
		}
		return out[i].Technique < out[j].Technique
	})
	return out
}

func (c *Collector) patternInsightsLocked() []PatternInsight {
	var out []PatternInsight
	for pattern, stat := range c.patterns {
		if stat.frequency < 3 {
			continue
		}
		out = append(out, PatternInsight{
			Pattern:        pattern,
			Frequency:      stat.frequency,
			SuccessRate:    float64(stat.successes) / float64(stat.frequency),
			MeanConfidence: stat.confidenceSum / float64(stat.frequency),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// ContentHash returns the stable hash used for vector deduplication.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// phraseWindows extracts overlapping 3-word windows from content, keeping
// only windows longer than minPatternWindow characters.
func phraseWindows(content string) []string {
	words := strings.Fields(strings.ToLower(content))
	if len(words) < 3 {
		return nil
	}
	var windows []string
	for i := 0; i+3 <= len(words); i++ {
		w := strings.Join(words[i:i+3], " ")
		if len(w) > minPatternWindow {
			windows = append(windows, w)
		}
	}
	return windows
}
