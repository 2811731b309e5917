package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Engine performs archive, retention, transfer and restore operations
// against a single backup directory. All archives it creates or accepts
// live flat inside that directory; source and restore paths are resolved
// against the configuration root.
//
// The engine holds no state beyond its construction parameters and does
// no internal locking. Callers that need concurrent safety must
// serialize operations against the same backup directory.
type Engine struct {
	backupDir      string
	configRoot     string
	defaultSources []string
	maxBackups     int
}

// BackupFile describes an archive currently present in the backup directory.
type BackupFile struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewEngine creates a backup engine. maxBackups is the retention cap;
// zero keeps all backups, negative values are clamped to zero.
func NewEngine(backupDir, configRoot string, defaultSources []string, maxBackups int) *Engine {
	if maxBackups < 0 {
		log.Printf("[Backup] Invalid retention cap %d; keeping all backups", maxBackups)
		maxBackups = 0
	}

	return &Engine{
		backupDir:      backupDir,
		configRoot:     configRoot,
		defaultSources: defaultSources,
		maxBackups:     maxBackups,
	}
}

// BackupDir returns the managed backup directory path.
func (e *Engine) BackupDir() string {
	return e.backupDir
}

// ListBackups returns metadata for every archive in the backup directory,
// sorted by filename. A missing backup directory yields an empty list.
func (e *Engine) ListBackups() ([]BackupFile, error) {
	entries, err := os.ReadDir(e.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var files []BackupFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".zip" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Printf("[Backup] Warning: failed to stat %s: %v", entry.Name(), err)
			continue
		}

		files = append(files, BackupFile{
			Filename:   entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	return files, nil
}
