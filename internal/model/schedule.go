package model

import "time"

// ScheduleType selects between one-shot and recurring execution.
type ScheduleType string

const (
	ScheduleOnce      ScheduleType = "once"
	ScheduleRecurring ScheduleType = "recurring"
)

// ScheduleConfig is the recurrence rule for a scheduled session.
// A recurring schedule uses IntervalMinutes when set, else the cron
// expression. Only the minute and hour cron fields are honored.
type ScheduleConfig struct {
	Type            ScheduleType `yaml:"type" json:"type"`
	RunAt           *time.Time   `yaml:"run_at,omitempty" json:"run_at,omitempty"`
	IntervalMinutes int          `yaml:"interval_minutes,omitempty" json:"interval_minutes,omitempty"`
	Cron            string       `yaml:"cron,omitempty" json:"cron,omitempty"`
	MaxRuns         int          `yaml:"max_runs,omitempty" json:"max_runs,omitempty"`
}

// ScheduledSession wraps a session configuration with its recurrence rule.
// Mutated by the scheduler on every execution; disabled automatically once
// the max-run cap is reached. A disabled schedule has no pending timer.
type ScheduledSession struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Session   SessionConfig  `json:"session"`
	Schedule  ScheduleConfig `json:"schedule"`
	Enabled   bool           `json:"enabled"`
	LastRun   *time.Time     `json:"last_run,omitempty"`
	NextRun   *time.Time     `json:"next_run,omitempty"`
	RunCount  int            `json:"run_count"`
	CreatedAt time.Time      `json:"created_at"`
}

// RunStatus is the state of one execution record.
type RunStatus string

const (
	RunRunning    RunStatus = "running"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	RunTerminated RunStatus = "terminated"
)

// SessionHistoryEntry is one execution record for a scheduled or ad-hoc run.
// Append-only audit trail; never mutated after completion.
type SessionHistoryEntry struct {
	ID          string          `json:"id"`
	ScheduleID  string          `json:"schedule_id,omitempty"`
	SessionID   string          `json:"session_id"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Status      RunStatus       `json:"status"`
	Results     *SessionResults `json:"results,omitempty"`
	Error       string          `json:"error,omitempty"`
}
