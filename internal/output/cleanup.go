package output

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultMaxAge is how long session directories are kept by default
const DefaultMaxAge = 24 * time.Hour

var sessionNamePattern = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}$`)

// CleanupStats reports what a cleanup pass removed
type CleanupStats struct {
	DeletedDirs  int
	DeletedFiles int
	FreedBytes   int64
	Cutoff       time.Time
}

// String renders the stats for humans
func (s CleanupStats) String() string {
	return fmt.Sprintf("deleted %d files from %d directories, freed %s",
		s.DeletedFiles, s.DeletedDirs, humanize.Bytes(uint64(s.FreedBytes)))
}

// IsSessionDir reports whether name looks like a session directory
func IsSessionDir(name string) bool {
	return sessionNamePattern.MatchString(name)
}

// Cleanup removes session directories under root last modified before now-maxAge.
// Entries that are not session directories are left alone. A missing root is not an error.
func Cleanup(root string, maxAge time.Duration, now time.Time) (CleanupStats, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	stats := CleanupStats{Cutoff: now.Add(-maxAge)}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !IsSessionDir(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return stats, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if !info.ModTime().Before(stats.Cutoff) {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		files, size, err := measure(dir)
		if err != nil {
			return stats, err
		}
		if err := os.RemoveAll(dir); err != nil {
			return stats, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		stats.DeletedDirs++
		stats.DeletedFiles += files
		stats.FreedBytes += size
	}
	return stats, nil
}

func measure(dir string) (int, int64, error) {
	var files int
	var size int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			files++
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to measure %s: %w", dir, err)
	}
	return files, size, nil
}
