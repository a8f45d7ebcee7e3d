// Package schedule launches arena sessions on timers: one-shot and
// recurring schedules, manual run-now, ad-hoc runs, and the execution
// history and statistics they produce.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vorion-labs/gauntlet/internal/arena"
	"github.com/vorion-labs/gauntlet/internal/history"
	"github.com/vorion-labs/gauntlet/internal/model"
)

// ErrNotFound is returned when operating on an unknown schedule id.
var ErrNotFound = errors.New("scheduled session not found")

// Update is a partial mutation of a scheduled session. Nil fields are
// left unchanged.
type Update struct {
	Name     *string
	Enabled  *bool
	Session  *model.SessionConfig
	Schedule *model.ScheduleConfig
}

// Statistics aggregates scheduler state and run outcomes.
type Statistics struct {
	TotalScheduled   int     `json:"total_scheduled"`
	EnabledScheduled int     `json:"enabled_scheduled"`
	TotalRuns        int     `json:"total_runs"`
	SuccessfulRuns   int     `json:"successful_runs"`
	FailedRuns       int     `json:"failed_runs"`
	MeanAccuracy     float64 `json:"mean_accuracy"`
	NovelDiscoveries int     `json:"novel_discoveries"`
}

// Manager schedules arena sessions and keeps their execution history.
// Timers are independent of session execution; concurrent firings are
// subject to the arena-wide session cap.
type Manager struct {
	arena *arena.Arena
	store history.Store

	mu        sync.Mutex
	schedules map[string]*model.ScheduledSession
	timers    map[string]*time.Timer
	started   bool

	unsubscribe func()
}

// NewManager creates a manager driving the given arena. A nil store keeps
// history in memory.
func NewManager(a *arena.Arena, store history.Store) *Manager {
	if store == nil {
		store = history.NewMemoryStore()
	}
	m := &Manager{
		arena:     a,
		store:     store,
		schedules: make(map[string]*model.ScheduledSession),
		timers:    make(map[string]*time.Timer),
	}
	// Mirror mined vectors into the store as they are discovered so the
	// report surface survives process restarts with a durable store.
	m.unsubscribe = a.Subscribe(func(ev arena.Event) {
		if ev.Type == arena.EventNovelDiscovery && ev.Vector != nil {
			if err := m.store.SaveVector(*ev.Vector); err != nil {
				fmt.Fprintf(os.Stderr, "schedule: save vector: %v\n", err)
			}
		}
	})
	return m
}

// Arena returns the arena this manager drives.
func (m *Manager) Arena() *arena.Arena { return m.arena }

// ScheduleSession registers a definition, computes its next run, and arms
// a timer if the manager is started and the schedule enabled.
func (m *Manager) ScheduleSession(def model.ScheduledSession) (*model.ScheduledSession, error) {
	if def.Name == "" {
		def.Name = def.Session.Name
	}
	def.ID = uuid.NewString()
	def.CreatedAt = time.Now().UTC()
	def.RunCount = 0
	def.NextRun = NextRun(def.Schedule, time.Now().UTC())

	m.mu.Lock()
	defer m.mu.Unlock()
	s := &def
	m.schedules[s.ID] = s
	m.armLocked(s)
	return cloneSchedule(s), nil
}

// UpdateSchedule applies a partial update, recomputes the next run, and
// re-arms or disarms the timer accordingly.
func (m *Manager) UpdateSchedule(id string, update Update) (*model.ScheduledSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if update.Name != nil {
		s.Name = *update.Name
	}
	if update.Session != nil {
		s.Session = *update.Session
	}
	if update.Schedule != nil {
		s.Schedule = *update.Schedule
	}
	if update.Enabled != nil {
		s.Enabled = *update.Enabled
	}
	s.NextRun = NextRun(s.Schedule, time.Now().UTC())
	m.armLocked(s)
	return cloneSchedule(s), nil
}

// RemoveSchedule deletes a scheduled session and clears its timer.
func (m *Manager) RemoveSchedule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.disarmLocked(id)
	delete(m.schedules, id)
	return nil
}

// SetEnabled toggles a schedule. Disabling clears any pending timer.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Enabled = enabled
	if enabled {
		s.NextRun = NextRun(s.Schedule, time.Now().UTC())
	} else {
		s.NextRun = nil
	}
	m.armLocked(s)
	return nil
}

// GetSchedule returns a snapshot of one scheduled session.
func (m *Manager) GetSchedule(id string) (*model.ScheduledSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneSchedule(s), nil
}

// ListSchedules returns snapshots of all scheduled sessions.
func (m *Manager) ListSchedules() []*model.ScheduledSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ScheduledSession, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, cloneSchedule(s))
	}
	return out
}

// RunNow executes the referenced schedule immediately, independent of its
// timer, with full history bookkeeping.
func (m *Manager) RunNow(id string) (*model.SessionHistoryEntry, error) {
	m.mu.Lock()
	_, ok := m.schedules[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.execute(id), nil
}

// RunAdHoc starts a one-off arena session with no schedule or history
// bookkeeping and returns the session record immediately. Subscribers are
// bound to the new session before its loop starts.
func (m *Manager) RunAdHoc(cfg model.SessionConfig, subs ...arena.Subscriber) (*model.ArenaSession, error) {
	return m.arena.StartSession(cfg, subs...)
}

// GetHistory returns history entries, newest-first, honoring the filter.
func (m *Manager) GetHistory(f history.Filter) ([]model.SessionHistoryEntry, error) {
	return m.store.List(f)
}

// GetStatistics aggregates scheduler and run-outcome counters.
func (m *Manager) GetStatistics() (Statistics, error) {
	m.mu.Lock()
	stats := Statistics{TotalScheduled: len(m.schedules)}
	for _, s := range m.schedules {
		if s.Enabled {
			stats.EnabledScheduled++
		}
	}
	m.mu.Unlock()

	entries, err := m.store.List(history.Filter{})
	if err != nil {
		return stats, fmt.Errorf("list history: %w", err)
	}
	var accuracySum float64
	completed := 0
	for _, e := range entries {
		stats.TotalRuns++
		switch e.Status {
		case model.RunCompleted:
			stats.SuccessfulRuns++
			if e.Results != nil {
				accuracySum += e.Results.DetectionAccuracy
				stats.NovelDiscoveries += e.Results.NovelVectors
				completed++
			}
		case model.RunFailed:
			stats.FailedRuns++
		}
	}
	if completed > 0 {
		stats.MeanAccuracy = accuracySum / float64(completed)
	}
	return stats, nil
}

// Start arms timers for all enabled schedules.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	for _, s := range m.schedules {
		m.armLocked(s)
	}
}

// Stop disarms all timers. In-flight executions run to completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	for id := range m.timers {
		m.disarmLocked(id)
	}
}

// Close stops the manager and releases its event subscription.
func (m *Manager) Close() error {
	m.Stop()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m.store.Close()
}

// armLocked re-arms the timer for s from its NextRun. Callers hold m.mu.
// A disabled schedule, an expired one-shot, or a stopped manager leaves no
// pending timer. A NextRun already in the past fires immediately.
func (m *Manager) armLocked(s *model.ScheduledSession) {
	m.disarmLocked(s.ID)
	if !m.started || !s.Enabled || s.NextRun == nil {
		return
	}
	delay := time.Until(*s.NextRun)
	if delay < 0 {
		delay = 0
	}
	id := s.ID
	m.timers[id] = time.AfterFunc(delay, func() { m.fire(id) })
}

func (m *Manager) disarmLocked(id string) {
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

// fire is the timer callback for one scheduled execution.
func (m *Manager) fire(id string) {
	m.mu.Lock()
	s, ok := m.schedules[id]
	if !ok || !s.Enabled {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.execute(id)
}

// execute runs one schedule now: it writes a running history entry, waits
// for the session to finish, finalizes the entry, and updates the
// schedule's bookkeeping (lastRun, runCount, nextRun, max-run cap).
// Failures are recorded per-run and never prevent future scheduled runs.
func (m *Manager) execute(id string) *model.SessionHistoryEntry {
	m.mu.Lock()
	s, ok := m.schedules[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	cfg := s.Session
	m.mu.Unlock()

	now := time.Now().UTC()
	entry := model.SessionHistoryEntry{
		ID:         uuid.NewString(),
		ScheduleID: id,
		StartedAt:  now,
		Status:     model.RunRunning,
	}
	if err := m.store.Append(entry); err != nil {
		fmt.Fprintf(os.Stderr, "schedule: append history: %v\n", err)
	}

	sess, err := m.arena.StartSession(cfg)
	if err != nil {
		entry.Status = model.RunFailed
		entry.Error = err.Error()
	} else {
		entry.SessionID = sess.ID
		final, werr := m.arena.WaitSession(context.Background(), sess.ID)
		switch {
		case werr != nil:
			entry.Status = model.RunFailed
			entry.Error = werr.Error()
		case final.Status == model.StatusFailed:
			entry.Status = model.RunFailed
			entry.Error = "session execution failed"
			entry.Results = &final.Results
		case final.Status == model.StatusTerminated:
			entry.Status = model.RunTerminated
			entry.Results = &final.Results
		default:
			entry.Status = model.RunCompleted
			entry.Results = &final.Results
		}
	}
	done := time.Now().UTC()
	entry.CompletedAt = &done
	if err := m.store.Update(entry); err != nil {
		fmt.Fprintf(os.Stderr, "schedule: update history: %v\n", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.schedules[id]
	if !ok {
		return &entry
	}
	// Failed runs are recorded but do not advance the run counter or the
	// max-run cap; the schedule re-arms and tries again.
	if entry.Status != model.RunFailed {
		ran := done
		s.LastRun = &ran
		s.RunCount++
		if s.Schedule.MaxRuns > 0 && s.RunCount >= s.Schedule.MaxRuns {
			s.Enabled = false
			s.NextRun = nil
			m.disarmLocked(id)
			return &entry
		}
	}
	s.NextRun = NextRun(s.Schedule, done)
	m.armLocked(s)
	return &entry
}

func cloneSchedule(s *model.ScheduledSession) *model.ScheduledSession {
	out := *s
	if s.LastRun != nil {
		t := *s.LastRun
		out.LastRun = &t
	}
	if s.NextRun != nil {
		t := *s.NextRun
		out.NextRun = &t
	}
	return &out
}
