// Package scratch manages the scratch directory used by the on-disk
// fallback pipeline. Every request writes to a uniquely named path and
// is solely responsible for its own cleanup; the janitor only sweeps
// files orphaned by crashes or kills.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// filePrefix marks files owned by this service inside the scratch dir.
const filePrefix = "dl_"

// Dir is a scratch directory namespace.
type Dir struct {
	path   string
	logger *slog.Logger
}

// NewDir creates the scratch directory if needed and returns it.
func NewDir(path string, logger *slog.Logger) (*Dir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &Dir{path: path, logger: logger}, nil
}

// Path returns the scratch directory path.
func (d *Dir) Path() string {
	return d.path
}

// UniquePath returns a fresh file path under the scratch directory.
// Names combine a nanosecond timestamp with a random ID so they never
// collide; no locking is needed across concurrent requests.
func (d *Dir) UniquePath(ext string) string {
	name := fmt.Sprintf("%s%d_%s.%s", filePrefix, time.Now().UnixNano(), uuid.New().String()[:8], ext)
	return filepath.Join(d.path, name)
}

// Remove deletes a scratch file. Failures are logged, never surfaced:
// a leftover file is eventually reclaimed by the janitor.
func (d *Dir) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("scratch file cleanup failed", "path", path, "error", err)
	}
}

// Sweep removes scratch files older than maxAge and returns how many
// were deleted. Only files carrying the service prefix are touched.
func (d *Dir) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		d.logger.Warn("scratch sweep failed", "error", err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(d.path, e.Name())
		if err := os.Remove(path); err != nil {
			d.logger.Warn("scratch sweep: remove failed", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		d.logger.Info("scratch sweep removed orphaned files", "count", removed)
	}
	return removed
}
