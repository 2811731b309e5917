package backup

import (
	"log"
	"os"
	"path/filepath"
	"sort"
)

// EnforceRetention deletes the oldest system-generated archives beyond
// the configured cap and returns the number removed. Filename order is
// chronological given the timestamp naming scheme. Uploaded archives
// with other names are never pruned. Individual deletion failures are
// logged and skipped; retention never fails a backup operation.
func (e *Engine) EnforceRetention() int {
	if e.maxBackups <= 0 {
		return 0
	}

	backups, err := filepath.Glob(filepath.Join(e.backupDir, archivePrefix+"*.zip"))
	if err != nil {
		log.Printf("[Retention] Failed to list backups: %v", err)
		return 0
	}

	sort.Strings(backups)
	excess := len(backups) - e.maxBackups
	if excess <= 0 {
		return 0
	}

	removed := 0
	for _, old := range backups[:excess] {
		if err := os.Remove(old); err != nil {
			log.Printf("[Retention] Failed to remove old backup %s: %v", old, err)
			continue
		}
		log.Printf("[Retention] Removed old backup %s", old)
		removed++
	}

	return removed
}
