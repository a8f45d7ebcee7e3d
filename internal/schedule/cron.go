package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// cronFallback is used when a recurring schedule's cron expression cannot
// be parsed: one hour from now.
const cronFallback = time.Hour

// NextRun computes when the schedule should fire next, relative to now.
// Returns nil for expired one-shot schedules (they never re-arm).
func NextRun(cfg model.ScheduleConfig, now time.Time) *time.Time {
	switch cfg.Type {
	case model.ScheduleOnce:
		if cfg.RunAt != nil && cfg.RunAt.After(now) {
			t := *cfg.RunAt
			return &t
		}
		return nil
	case model.ScheduleRecurring:
		if cfg.IntervalMinutes > 0 {
			t := now.Add(time.Duration(cfg.IntervalMinutes) * time.Minute)
			return &t
		}
		t := nextCron(cfg.Cron, now)
		return &t
	default:
		return nil
	}
}

// nextCron evaluates a simplified cron expression: only the minute and
// hour fields are honored; day-of-month, month, and day-of-week are
// ignored.
func nextCron(expr string, now time.Time) time.Time {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return now.Add(cronFallback)
	}

	minute, minuteWild, ok := parseCronField(fields[0], 0, 59)
	if !ok {
		return now.Add(cronFallback)
	}
	hour, hourWild, ok := parseCronField(fields[1], 0, 23)
	if !ok {
		return now.Add(cronFallback)
	}

	// Walk forward minute by minute from the next whole minute until both
	// fields match. Bounded by 24h plus one minute: some minute/hour pair
	// always matches within a day.
	t := now.Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(24*time.Hour + time.Minute)
	for ; t.Before(limit); t = t.Add(time.Minute) {
		if !minuteWild && t.Minute() != minute {
			continue
		}
		if !hourWild && t.Hour() != hour {
			continue
		}
		return t
	}
	return now.Add(cronFallback)
}

// parseCronField accepts "*" or a single number within [lo, hi].
func parseCronField(field string, lo, hi int) (value int, wildcard, ok bool) {
	if field == "*" {
		return 0, true, true
	}
	n, err := strconv.Atoi(field)
	if err != nil || n < lo || n > hi {
		return 0, false, false
	}
	return n, false, true
}
