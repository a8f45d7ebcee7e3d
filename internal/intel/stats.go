package intel

import (
	"sort"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// CategoryStats aggregates turn outcomes for one attack category.
type CategoryStats struct {
	Category      model.AttackCategory `json:"category"`
	Attempts      int                  `json:"attempts"`
	Successes     int                  `json:"successes"`
	Detected      int                  `json:"detected"`
	SuccessRate   float64              `json:"success_rate"`
	DetectionRate float64              `json:"detection_rate"`
}

// TechniqueStats aggregates turn outcomes for one technique.
type TechniqueStats struct {
	Technique   string  `json:"technique"`
	Attempts    int     `json:"attempts"`
	Successes   int     `json:"successes"`
	Bypasses    int     `json:"bypasses"`
	SuccessRate float64 `json:"success_rate"`
}

// GetCategoryStats returns per-category aggregates over all collected
// turns. Read-only; does not mutate collector state.
func (c *Collector) GetCategoryStats() []CategoryStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	byCat := make(map[model.AttackCategory]*CategoryStats)
	for _, rec := range c.turns {
		s := byCat[rec.payload.Category]
		if s == nil {
			s = &CategoryStats{Category: rec.payload.Category}
			byCat[rec.payload.Category] = s
		}
		s.Attempts++
		if rec.turn.Successful {
			s.Successes++
		}
		if rec.turn.Detection.Detected {
			s.Detected++
		}
	}

	out := make([]CategoryStats, 0, len(byCat))
	for _, s := range byCat {
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		s.DetectionRate = float64(s.Detected) / float64(s.Attempts)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// GetMostEffectiveTechniques returns up to limit techniques ranked by
// success rate, then bypass count. Read-only.
func (c *Collector) GetMostEffectiveTechniques(limit int) []TechniqueStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	byTech := make(map[string]*TechniqueStats)
	for _, rec := range c.turns {
		s := byTech[rec.payload.Technique]
		if s == nil {
			s = &TechniqueStats{Technique: rec.payload.Technique}
			byTech[rec.payload.Technique] = s
		}
		s.Attempts++
		if rec.turn.Successful {
			s.Successes++
		}
		if rec.turn.Successful && !rec.turn.Detection.Detected {
			s.Bypasses++
		}
	}

	out := make([]TechniqueStats, 0, len(byTech))
	for _, s := range byTech {
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SuccessRate != out[j].SuccessRate {
			return out[i].SuccessRate > out[j].SuccessRate
		}
		if out[i].Bypasses != out[j].Bypasses {
			return out[i].Bypasses > out[j].Bypasses
		}
		return out[i].Technique < out[j].Technique
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
