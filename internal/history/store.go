// Package history provides the storage collaborator for execution records:
// an in-memory store used by default and a sqlite-backed one for durable
// deployments, plus a tamper-evident per-session turn log.
package history

import (
	"sort"
	"sync"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// Filter narrows a history query. Zero values match everything.
type Filter struct {
	ScheduleID string
	Status     model.RunStatus
	Limit      int
}

// Store persists execution records and mined artifacts. Implementations
// must be safe for concurrent use.
type Store interface {
	Append(entry model.SessionHistoryEntry) error
	Update(entry model.SessionHistoryEntry) error
	List(f Filter) ([]model.SessionHistoryEntry, error)
	SaveVector(v model.AttackVector) error
	SaveRule(r model.DetectionRule) error
	Vectors() ([]model.AttackVector, error)
	Rules() ([]model.DetectionRule, error)
	Close() error
}

// MemoryStore keeps everything in process memory. The reference default.
type MemoryStore struct {
	mu      sync.Mutex
	entries []model.SessionHistoryEntry
	vectors []model.AttackVector
	rules   []model.DetectionRule
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Append records a new history entry.
func (s *MemoryStore) Append(entry model.SessionHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Update replaces the entry with the same id. Unknown ids are appended so
// an execution record is never silently dropped.
func (s *MemoryStore) Update(entry model.SessionHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = entry
			return nil
		}
	}
	s.entries = append(s.entries, entry)
	return nil
}

// List returns matching entries newest-first.
func (s *MemoryStore) List(f Filter) ([]model.SessionHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.SessionHistoryEntry
	for _, e := range s.entries {
		if f.ScheduleID != "" && e.ScheduleID != f.ScheduleID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// SaveVector stores a mined attack vector.
func (s *MemoryStore) SaveVector(v model.AttackVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = append(s.vectors, v)
	return nil
}

// SaveRule stores a synthesized detection rule.
func (s *MemoryStore) SaveRule(r model.DetectionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r)
	return nil
}

// Vectors returns all stored vectors.
func (s *MemoryStore) Vectors() ([]model.AttackVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AttackVector(nil), s.vectors...), nil
}

// Rules returns all stored rules.
func (s *MemoryStore) Rules() ([]model.DetectionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.DetectionRule(nil), s.rules...), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
