// Package scenario loads YAML session definitions and renders run
// reports for the CLI.
package scenario

import (
	"fmt"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// Definition is one scenario file: a session configuration plus an
// optional recurrence rule. Without a schedule block the scenario runs
// ad hoc.
type Definition struct {
	Name     string                `yaml:"name"`
	Session  model.SessionConfig   `yaml:"session"`
	Schedule *model.ScheduleConfig `yaml:"schedule,omitempty"`
	Enabled  *bool                 `yaml:"enabled,omitempty"`
}

// Scheduled reports whether the definition carries a recurrence rule.
func (d *Definition) Scheduled() bool { return d.Schedule != nil }

// ScheduledSession converts the definition into the scheduler's record.
// Enabled defaults to true when the file omits it.
func (d *Definition) ScheduledSession() model.ScheduledSession {
	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}
	s := model.ScheduledSession{
		Name:    d.Name,
		Session: d.Session,
		Enabled: enabled,
	}
	if d.Schedule != nil {
		s.Schedule = *d.Schedule
	}
	return s
}

// Validate checks the definition for errors a run would only surface later.
func (d *Definition) Validate() error {
	if d.Name == "" && d.Session.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if d.Session.MaxTurns < 0 {
		return fmt.Errorf("scenario %q: max_turns must not be negative", d.displayName())
	}
	if d.Session.Timeout < 0 {
		return fmt.Errorf("scenario %q: timeout must not be negative", d.displayName())
	}
	if d.Schedule != nil {
		switch d.Schedule.Type {
		case model.ScheduleOnce:
			if d.Schedule.RunAt == nil {
				return fmt.Errorf("scenario %q: once schedule requires run_at", d.displayName())
			}
		case model.ScheduleRecurring:
			if d.Schedule.IntervalMinutes <= 0 && d.Schedule.Cron == "" {
				return fmt.Errorf("scenario %q: recurring schedule requires interval_minutes or cron", d.displayName())
			}
		default:
			return fmt.Errorf("scenario %q: unknown schedule type %q", d.displayName(), d.Schedule.Type)
		}
	}
	return nil
}

func (d *Definition) displayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Session.Name
}
