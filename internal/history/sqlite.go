package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vorion-labs/gauntlet/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a sqlite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and migrates it.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			schedule_id TEXT,
			session_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			status TEXT NOT NULL,
			results TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_schedule ON history(schedule_id)`,
		`CREATE TABLE IF NOT EXISTS vectors (
			hash TEXT PRIMARY KEY,
			record TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rules (
			id TEXT PRIMARY KEY,
			record TEXT NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Append inserts a new history row.
func (s *SQLiteStore) Append(entry model.SessionHistoryEntry) error {
	results, completedAt, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO history (id, schedule_id, session_id, started_at, completed_at, status, results, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ScheduleID, entry.SessionID,
		entry.StartedAt.Format(timeLayout), completedAt,
		string(entry.Status), results, entry.Error,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Update rewrites the row with the entry's id, inserting it when no such
// row exists. History entries are never silently dropped.
func (s *SQLiteStore) Update(entry model.SessionHistoryEntry) error {
	results, completedAt, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO history (id, schedule_id, session_id, started_at, completed_at, status, results, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			status = excluded.status,
			results = excluded.results,
			error = excluded.error`,
		entry.ID, entry.ScheduleID, entry.SessionID,
		entry.StartedAt.Format(timeLayout), completedAt,
		string(entry.Status), results, entry.Error,
	)
	if err != nil {
		return fmt.Errorf("update history entry: %w", err)
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func encodeEntry(entry model.SessionHistoryEntry) (results, completedAt string, err error) {
	if entry.Results != nil {
		raw, err := json.Marshal(entry.Results)
		if err != nil {
			return "", "", fmt.Errorf("encode results: %w", err)
		}
		results = string(raw)
	}
	if entry.CompletedAt != nil {
		completedAt = entry.CompletedAt.Format(timeLayout)
	}
	return results, completedAt, nil
}

// List returns matching rows newest-first.
func (s *SQLiteStore) List(f Filter) ([]model.SessionHistoryEntry, error) {
	query := `SELECT id, schedule_id, session_id, started_at, completed_at, status, results, error
		FROM history WHERE 1=1`
	var args []any
	if f.ScheduleID != "" {
		query += " AND schedule_id = ?"
		args = append(args, f.ScheduleID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY started_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.SessionHistoryEntry
	for rows.Next() {
		var e model.SessionHistoryEntry
		var startedAt, completedAt, results, status string
		if err := rows.Scan(&e.ID, &e.ScheduleID, &e.SessionID, &startedAt, &completedAt, &status, &results, &e.Error); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Status = model.RunStatus(status)
		if e.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if completedAt != "" {
			t, err := parseTime(completedAt)
			if err != nil {
				return nil, err
			}
			e.CompletedAt = &t
		}
		if results != "" {
			e.Results = &model.SessionResults{}
			if err := json.Unmarshal([]byte(results), e.Results); err != nil {
				return nil, fmt.Errorf("decode results: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveVector upserts a vector row keyed by content hash.
func (s *SQLiteStore) SaveVector(v model.AttackVector) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO vectors (hash, record) VALUES (?, ?)
		 ON CONFLICT(hash) DO UPDATE SET record = excluded.record`,
		v.Hash, string(raw),
	)
	if err != nil {
		return fmt.Errorf("save vector: %w", err)
	}
	return nil
}

// SaveRule upserts a rule row.
func (s *SQLiteStore) SaveRule(r model.DetectionRule) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode rule: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO rules (id, record) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET record = excluded.record`,
		r.ID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("save rule: %w", err)
	}
	return nil
}

// Vectors returns all stored vectors.
func (s *SQLiteStore) Vectors() ([]model.AttackVector, error) {
	rows, err := s.db.Query(`SELECT record FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var out []model.AttackVector
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v model.AttackVector
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode vector: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Rules returns all stored rules.
func (s *SQLiteStore) Rules() ([]model.DetectionRule, error) {
	rows, err := s.db.Query(`SELECT record FROM rules`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []model.DetectionRule
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r model.DetectionRule
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", v, err)
	}
	return t, nil
}
