package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/logger"
	"github.com/okian/cfduel/pkg/metrics"
)

// FileArchive keeps the recent-duel list in a single JSON file, newest
// first. The whole list is rewritten on every append; at the retention
// bound of a few dozen records that is cheaper than anything incremental.
type FileArchive struct {
	settings

	mu      sync.Mutex
	path    string
	records []model.RecentDuelRecord
}

// NewFile opens (or creates) a file-backed archive at path. A missing
// file is an empty archive; a corrupt one is an error.
func NewFile(path string, opts ...Option) (*FileArchive, error) {
	a := &FileArchive{
		settings: newSettings(opts...),
		path:     path,
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return a, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, ErrLoad)
	}

	if err := json.Unmarshal(raw, &a.records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, ErrLoad)
	}
	if len(a.records) > a.maxRecent {
		a.records = a.records[:a.maxRecent]
	}
	metrics.UpdateArchiveRecords(len(a.records))
	return a, nil
}

// Append prepends rec, truncates to the retention bound and rewrites the
// file.
func (a *FileArchive) Append(ctx context.Context, rec model.RecentDuelRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := append([]model.RecentDuelRecord{rec}, a.records...)
	if len(records) > a.maxRecent {
		records = records[:a.maxRecent]
	}

	if err := a.persist(records); err != nil {
		metrics.RecordArchiveError()
		a.logger.Error(ctx, "archive write failed",
			logger.String("path", a.path),
			logger.Error(err),
		)
		return err
	}

	a.records = records
	metrics.UpdateArchiveRecords(len(a.records))
	return nil
}

// Recent returns the retained records, newest first.
func (a *FileArchive) Recent(_ context.Context) ([]model.RecentDuelRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]model.RecentDuelRecord(nil), a.records...), nil
}

// persist writes via a temp file and rename so a crash mid-write never
// leaves a truncated archive.
func (a *FileArchive) persist(records []model.RecentDuelRecord) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", ErrPersist)
	}

	tmp := a.path + ".tmp"
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, ErrPersist)
		}
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, ErrPersist)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, ErrPersist)
	}
	return nil
}
