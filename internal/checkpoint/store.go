package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a checkpoint id is neither cached nor present
// in durable storage.
var ErrNotFound = errors.New("checkpoint: not found")

const recordFile = "checkpoint.json"

// EvictionFailure records one checkpoint that could not be deleted during
// eviction. Failures never abort eviction of the remaining checkpoints.
type EvictionFailure struct {
	ID  string
	Err error
}

// EvictionResult reports what Evict removed and what it could not.
type EvictionResult struct {
	Removed []string
	Failed  []EvictionFailure
}

// Store persists checkpoints under a base directory, one subdirectory per
// checkpoint id, with a sqlite summary index for ordering. The in-memory
// cache mirrors durable storage; on a cache miss Load falls back to the
// checkpoint.json on disk before declaring NotFound.
type Store struct {
	dir   string
	idx   *index
	cache map[string]*Checkpoint
	mu    sync.Mutex
	log   zerolog.Logger
}

// Open creates or opens a Store rooted at dir.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: mkdir store dir: %w", err)
	}
	idx, err := openIndex(filepath.Join(dir, "checkpoints.db"))
	if err != nil {
		return nil, err
	}
	return &Store{
		dir:   dir,
		idx:   idx,
		cache: make(map[string]*Checkpoint),
		log:   log,
	}, nil
}

// Close closes the summary index.
func (s *Store) Close() error {
	return s.idx.close()
}

// Dir returns the store's base directory.
func (s *Store) Dir() string {
	return s.dir
}

// CheckpointDir returns the storage area owned by the given checkpoint id.
func (s *Store) CheckpointDir(id string) string {
	return filepath.Join(s.dir, id)
}

// Save persists the checkpoint record into its storage area and indexes it.
// The storage area itself (file copies) is written by the Capturer before
// Save is called.
func (s *Store) Save(cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal record: %w", err)
	}

	dir := s.CheckpointDir(cp.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("checkpoint: mkdir checkpoint dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, recordFile), data, 0644); err != nil {
		return fmt.Errorf("checkpoint: write record: %w", err)
	}

	if err := s.idx.put(cp.Summary()); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[cp.ID] = cp
	s.mu.Unlock()

	s.log.Debug().Str("checkpoint_id", cp.ID).Str("name", cp.Name).Msg("checkpoint saved")
	return nil
}

// Load returns the checkpoint with the given id. Cache first, then the
// durable checkpoint.json (backfilling cache and index), then ErrNotFound.
func (s *Store) Load(id string) (*Checkpoint, error) {
	s.mu.Lock()
	if cp, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return cp, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.CheckpointDir(id), recordFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("checkpoint: read record: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal record: %w", err)
	}

	// Reconcile: a record found on disk but missing from cache (fresh
	// process, rebuilt index) is re-registered.
	if err := s.idx.put(cp.Summary()); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[cp.ID] = &cp
	s.mu.Unlock()

	return &cp, nil
}

// List returns checkpoint summaries, newest first by creation time.
func (s *Store) List() ([]Summary, error) {
	return s.idx.list()
}

// Remove deletes one checkpoint: storage area, index row, and cache entry.
func (s *Store) Remove(id string) error {
	if _, err := s.idx.get(id); err != nil {
		// Fall through for records on disk but not yet indexed.
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if _, statErr := os.Stat(s.CheckpointDir(id)); statErr != nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}

	if err := os.RemoveAll(s.CheckpointDir(id)); err != nil {
		return fmt.Errorf("checkpoint: remove storage area: %w", err)
	}
	if err := s.idx.delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	return nil
}

// Evict deletes all but the keep newest checkpoints. Each deletion is
// attempted independently; a checkpoint whose storage area cannot be removed
// stays indexed and is reported in the result.
func (s *Store) Evict(keep int) (*EvictionResult, error) {
	if keep < 0 {
		keep = 0
	}

	summaries, err := s.idx.list()
	if err != nil {
		return nil, err
	}
	if len(summaries) <= keep {
		return &EvictionResult{}, nil
	}

	result := &EvictionResult{}
	for _, victim := range summaries[keep:] {
		if err := os.RemoveAll(s.CheckpointDir(victim.ID)); err != nil {
			s.log.Warn().Str("checkpoint_id", victim.ID).Err(err).Msg("eviction failed")
			result.Failed = append(result.Failed, EvictionFailure{ID: victim.ID, Err: err})
			continue
		}
		if err := s.idx.delete(victim.ID); err != nil {
			result.Failed = append(result.Failed, EvictionFailure{ID: victim.ID, Err: err})
			continue
		}
		s.mu.Lock()
		delete(s.cache, victim.ID)
		s.mu.Unlock()
		result.Removed = append(result.Removed, victim.ID)
		s.log.Info().Str("checkpoint_id", victim.ID).Str("name", victim.Name).Msg("evicted old checkpoint")
	}

	return result, nil
}
