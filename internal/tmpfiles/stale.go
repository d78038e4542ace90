package tmpfiles

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RemoveStale deletes regular files directly inside dir that were last
// modified before cutoff. It is used to clean up after processes that exited
// without running Cleanup. A missing dir is not an error.
func RemoveStale(dir string, cutoff time.Time, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to delete stale temp file", "path", path, "error", err)
			continue
		}
		logger.Debug("deleted stale temp file", "path", path)
		removed++
	}
	return removed, nil
}
