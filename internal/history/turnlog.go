package history

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// GenesisHash is the prev_hash for the first entry in a new turn log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// TurnEntry is one line in the hash-chained JSONL turn log. Lines are
// marshaled from this struct, so field order is fixed and each line's
// hash is reproducible.
type TurnEntry struct {
	Timestamp string            `json:"ts"`
	SessionID string            `json:"session_id"`
	Turn      model.SessionTurn `json:"turn"`
	PrevHash  string            `json:"prev_hash"`
}

// TurnLog is an append-only JSONL log of session turns with SHA-256 hash
// chaining: each entry's prev_hash is the hash of the previous line,
// forming a tamper-evident chain.
type TurnLog struct {
	file     *os.File
	prevHash string
	mu       sync.Mutex
}

// OpenTurnLog opens (or creates) a turn log for appending, recovering the
// chain tail from an existing file.
func OpenTurnLog(path string) (*TurnLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("turnlog: create directory: %w", err)
	}

	prevHash := GenesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		last, err := lastLine(path)
		if err != nil {
			return nil, fmt.Errorf("turnlog: read existing log: %w", err)
		}
		if len(last) > 0 {
			prevHash = hashLine(last)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("turnlog: open file: %w", err)
	}
	return &TurnLog{file: file, prevHash: prevHash}, nil
}

// Record appends one turn to the log with hash chaining.
func (l *TurnLog) Record(sessionID string, turn model.SessionTurn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := TurnEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		SessionID: sessionID,
		Turn:      turn,
		PrevHash:  l.prevHash,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("turnlog: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("turnlog: write entry: %w", err)
	}
	l.prevHash = hashLine(line)
	return nil
}

// Close closes the underlying file.
func (l *TurnLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// VerifyTurnLog walks the chain and returns the number of valid entries,
// or an error at the first break.
func VerifyTurnLog(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("turnlog: open: %w", err)
	}
	defer f.Close()

	expected := GenesisHash
	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var entry TurnEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return count, fmt.Errorf("turnlog: entry %d malformed: %w", count+1, err)
		}
		if entry.PrevHash != expected {
			return count, fmt.Errorf("turnlog: chain broken at entry %d", count+1)
		}
		expected = hashLine(append([]byte(nil), line...))
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("turnlog: scan: %w", err)
	}
	return count, nil
}

func hashLine(line []byte) string {
	sum := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	var last []byte
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
	}
	return last, scanner.Err()
}
