package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SweepStats reports what a journal sweep removed.
type SweepStats struct {
	FilesRemoved int
	BytesFreed   int64
}

// Sweep removes journal files older than retentionDays. The journal
// itself is subject to retention, same as the resources it records.
func Sweep(dir string, retentionDays int) (SweepStats, error) {
	stats := SweepStats{}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := filepath.Glob(filepath.Join(dir, filePrefix+"-*.journal"))
	if err != nil {
		return stats, fmt.Errorf("failed to list journal files: %w", err)
	}

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(file); err != nil {
			return stats, fmt.Errorf("failed to remove %s: %w", file, err)
		}
		stats.FilesRemoved++
		stats.BytesFreed += info.Size()
	}

	return stats, nil
}
