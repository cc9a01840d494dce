package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// index is the sqlite summary index backing Store.List and eviction ordering.
// The checkpoint.json inside each storage area remains the record of truth;
// the index only orders and counts.
type index struct {
	db *sql.DB
}

func openIndex(path string) (*index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open index: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: ping index: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("checkpoint: %s: %w", p, err)
		}
	}

	ddl := `CREATE TABLE IF NOT EXISTS checkpoints (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		strategy     TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		vcs_revision TEXT NOT NULL DEFAULT '',
		file_count   INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: create index table: %w", err)
	}

	return &index{db: db}, nil
}

func (x *index) close() error {
	return x.db.Close()
}

func (x *index) put(s Summary) error {
	_, err := x.db.Exec(
		`INSERT OR REPLACE INTO checkpoints (id, name, strategy, created_at, vcs_revision, file_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Strategy, s.CreatedAt, s.VCSRevision, s.FileCount,
	)
	if err != nil {
		return fmt.Errorf("checkpoint: index put: %w", err)
	}
	return nil
}

func (x *index) delete(id string) error {
	_, err := x.db.Exec(`DELETE FROM checkpoints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("checkpoint: index delete: %w", err)
	}
	return nil
}

func (x *index) get(id string) (Summary, error) {
	var s Summary
	err := x.db.QueryRow(
		`SELECT id, name, strategy, created_at, vcs_revision, file_count
		 FROM checkpoints WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Strategy, &s.CreatedAt, &s.VCSRevision, &s.FileCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("checkpoint: index get: %w", err)
	}
	return s, nil
}

// list returns summaries newest first. RFC3339 timestamps sort
// lexicographically in creation order; the id breaks same-instant ties.
func (x *index) list() ([]Summary, error) {
	rows, err := x.db.Query(
		`SELECT id, name, strategy, created_at, vcs_revision, file_count
		 FROM checkpoints ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: index list: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.Strategy, &s.CreatedAt, &s.VCSRevision, &s.FileCount); err != nil {
			return nil, fmt.Errorf("checkpoint: index scan: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: index rows: %w", err)
	}
	return summaries, nil
}
