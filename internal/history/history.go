// Package history keeps the append-only record of rollback attempts. Each
// record is hash-chained to the previous one so later tampering is
// detectable; no component ever edits or removes an entry.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yuchenwei/rewind/internal/rollback"
)

const logFile = "records.jsonl"

// Record is one rollback attempt plus its chain linkage.
type Record struct {
	rollback.Result
	PrevHash string `json:"prev_hash,omitempty"`
	Hash     string `json:"hash,omitempty"`
}

// Log is the append-only rollback history, one JSON line per attempt, in
// append order.
type Log struct {
	dir      string
	lastHash string
	mu       sync.Mutex
}

func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("history: mkdir: %w", err)
	}
	l := &Log{dir: dir}
	l.initLastHash()
	return l, nil
}

func (l *Log) path() string {
	return filepath.Join(l.dir, logFile)
}

func (l *Log) initLastHash() {
	records, err := l.All()
	if err != nil || len(records) == 0 {
		return
	}
	l.lastHash = records[len(records)-1].Hash
}

func computeHash(r Record) string {
	r.Hash = ""
	data, _ := json.Marshal(r)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Append writes one finalized rollback result to the log. Called exactly
// once per attempt, failed attempts included.
func (l *Log) Append(result *rollback.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := Record{Result: *result, PrevHash: l.lastHash}
	record.Hash = computeHash(record)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("history: marshal record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("history: open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	l.lastHash = record.Hash
	return nil
}

// All returns every record in append order.
func (l *Log) All() ([]Record, error) {
	data, err := os.ReadFile(l.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: read log: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}

	var records []Record
	for _, line := range strings.Split(content, "\n") {
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("history: parse record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Recent returns up to n records, newest first.
func (l *Log) Recent(n int) ([]Record, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	var recent []Record
	for i := len(records) - 1; i >= 0 && len(recent) < n; i-- {
		recent = append(recent, records[i])
	}
	return recent, nil
}

// Verify walks the chain and reports whether every record's hash and
// linkage are intact. On a broken chain it returns the index of the first
// bad record; -1 otherwise.
func (l *Log) Verify() (bool, int, error) {
	records, err := l.All()
	if err != nil {
		return false, -1, err
	}

	var expectedPrev string
	for i, r := range records {
		if computeHash(r) != r.Hash {
			return false, i, nil
		}
		if r.PrevHash != expectedPrev {
			return false, i, nil
		}
		expectedPrev = r.Hash
	}
	return true, -1, nil
}
