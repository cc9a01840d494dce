// Package filelock serializes restores per project root using flock-based
// file locks. At most one rollback may be in flight against a project at a
// time; concurrent captures do not take this lock because each writes into
// its own checkpoint-namespaced storage area.
package filelock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockVersion is the current version of the lock metadata format.
const LockVersion = 1

// ErrLocked is returned when another process holds the project lock.
var ErrLocked = errors.New("filelock: project is locked by another process")

// Lock represents an acquired project lock.
type Lock struct {
	Path string
	file *os.File
}

// Meta is the on-disk metadata written alongside a lock file.
type Meta struct {
	PID       int    `json:"pid"`
	Project   string `json:"project"`
	Timestamp string `json:"timestamp"`
	Version   int    `json:"lock_version"`
}

// lockPath derives a stable lock file path for a project root.
func lockPath(locksDir, projectRoot string) string {
	sum := sha256.Sum256([]byte(projectRoot))
	return filepath.Join(locksDir, hex.EncodeToString(sum[:8])+".lock")
}

// AcquireProject takes the exclusive restore lock for projectRoot. It does
// not block: when the lock is held elsewhere it returns ErrLocked with the
// holder's PID when known.
func AcquireProject(locksDir, projectRoot string) (*Lock, error) {
	path := lockPath(locksDir, projectRoot)
	if err := os.MkdirAll(locksDir, 0755); err != nil {
		return nil, fmt.Errorf("filelock: mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("filelock: open lock file: %w", err)
	}

	fd := int(f.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			holderPID := 0
			if meta, metaErr := ReadMeta(path); metaErr == nil {
				holderPID = meta.PID
			}
			if IsStale(path) {
				return nil, fmt.Errorf("%w (holder PID: %d, holder appears dead or left no metadata)", ErrLocked, holderPID)
			}
			return nil, fmt.Errorf("%w (holder PID: %d)", ErrLocked, holderPID)
		}
		return nil, fmt.Errorf("filelock: flock: %w", err)
	}

	meta := Meta{
		PID:       os.Getpid(),
		Project:   projectRoot,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   LockVersion,
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("filelock: marshal meta: %w", err)
	}
	if err := os.WriteFile(path+".meta", metaData, 0644); err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("filelock: write meta: %w", err)
	}

	return &Lock{Path: path, file: f}, nil
}

// Release drops the flock, closes the lock file, and removes the meta file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	fd := int(l.file.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_UN); err != nil {
		return fmt.Errorf("filelock: unlock: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("filelock: close: %w", err)
	}
	l.file = nil

	// Best-effort removal of meta file.
	_ = os.Remove(l.Path + ".meta")
	return nil
}

// IsStale reports whether the lock at lockPath belongs to a dead process.
func IsStale(lockPath string) bool {
	meta, err := ReadMeta(lockPath)
	if err != nil {
		// No meta or unreadable meta: treat as stale.
		return true
	}

	proc, err := os.FindProcess(meta.PID)
	if err != nil {
		return true
	}

	// Signal 0 checks process existence without sending a signal.
	err = proc.Signal(syscall.Signal(0))
	return err != nil
}

// ReadMeta reads and parses the .meta JSON file associated with lockPath.
func ReadMeta(lockPath string) (Meta, error) {
	data, err := os.ReadFile(lockPath + ".meta")
	if err != nil {
		return Meta{}, fmt.Errorf("filelock: read meta: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("filelock: unmarshal meta: %w", err)
	}
	return meta, nil
}
