package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// ledgerState is the JSON payload persisted by FileLedger
type ledgerState struct {
	ProcessedIDs []int64   `json:"processed_ids"`
	LastRunAt    time.Time `json:"last_run_at"`
}

// FileLedger implements domain.Ledger on a single JSON file.
//
// Flushing happens after every processed message, which bounds crash
// recovery to at most one redone message: already-flushed ids are never
// reprocessed. Flush writes to a temp file and renames it into place, so a
// flush either fully lands or has no effect on the next load.
type FileLedger struct {
	path    string
	ordered []int64
	index   map[int64]struct{}
	dirty   bool
}

// NewFileLedger loads the ledger from path. A missing or empty backing file
// yields an empty ledger; an existing but unparseable file fails with
// domain.ErrCorruptState so the caller can decide to abort or reset.
func NewFileLedger(path string) (*FileLedger, error) {
	l := &FileLedger{
		path:  path,
		index: make(map[int64]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	if len(data) == 0 {
		return l, nil
	}

	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptState, path, err)
	}

	for _, id := range state.ProcessedIDs {
		if _, ok := l.index[id]; ok {
			continue
		}
		l.ordered = append(l.ordered, id)
		l.index[id] = struct{}{}
	}
	return l, nil
}

// Contains reports whether a message id has been processed
func (l *FileLedger) Contains(id int64) bool {
	_, ok := l.index[id]
	return ok
}

// MarkProcessed records a message id; marking a present id is a no-op
func (l *FileLedger) MarkProcessed(id int64) {
	if _, ok := l.index[id]; ok {
		return
	}
	l.ordered = append(l.ordered, id)
	l.index[id] = struct{}{}
	l.dirty = true
}

// Len returns the number of processed ids
func (l *FileLedger) Len() int {
	return len(l.ordered)
}

// Flush durably persists current state via write-to-temp-then-rename
func (l *FileLedger) Flush() error {
	if !l.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	state := ledgerState{
		ProcessedIDs: l.ordered,
		LastRunAt:    time.Now().UTC(),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger temp file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	l.dirty = false
	return nil
}

// Reset removes the backing file and clears in-memory state. Used when the
// caller explicitly chooses to start fresh after corruption.
func (l *FileLedger) Reset() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove ledger file: %w", err)
	}
	l.ordered = nil
	l.index = make(map[int64]struct{})
	l.dirty = false
	return nil
}
