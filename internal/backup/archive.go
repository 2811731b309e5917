package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// archivePrefix and archiveTimeFormat define the system-generated
// archive naming scheme. Only files matching this scheme are subject to
// retention pruning.
const (
	archivePrefix     = "ha_backup_"
	archiveTimeFormat = "20060102_150405"
)

// CreateBackup archives the given sources into a new timestamped zip in
// the backup directory and returns its path. Nil or empty sources fall
// back to the configured defaults. Missing sources are skipped; when
// every source is missing no archive is created and ("", nil) is
// returned. Two calls within the same second produce the same filename
// and the later one wins.
func (e *Engine) CreateBackup(sources []string) (string, error) {
	if len(sources) == 0 {
		sources = e.defaultSources
	}
	if len(sources) == 0 {
		log.Printf("[Backup] No sources provided for backup")
		return "", nil
	}

	var resolved []string
	for _, source := range sources {
		sourcePath := resolvePath(source, e.configRoot)
		if _, err := os.Stat(sourcePath); err != nil {
			log.Printf("[Backup] Skipping missing backup source: %s", sourcePath)
			continue
		}
		resolved = append(resolved, sourcePath)
	}

	if len(resolved) == 0 {
		log.Printf("[Backup] No valid sources found for backup")
		return "", nil
	}

	if err := os.MkdirAll(e.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format(archiveTimeFormat)
	archivePath := filepath.Join(e.backupDir, archivePrefix+timestamp+".zip")

	if err := e.writeArchive(archivePath, resolved); err != nil {
		return "", err
	}

	log.Printf("[Backup] Created backup at %s", archivePath)

	if e.maxBackups > 0 {
		e.EnforceRetention()
	}

	return archivePath, nil
}

// writeArchive streams every resolved source into a new zip file. On
// failure the archive is left in whatever state it reached; no cleanup
// is attempted.
func (e *Engine) writeArchive(archivePath string, sources []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, source := range sources {
		if err := e.addToArchive(zw, source); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", archivePath, err)
	}

	return nil
}

// addToArchive adds a file or directory tree to the archive. Directories
// are walked in lexical order and only regular files become members;
// symlinks and other special entries are skipped.
func (e *Engine) addToArchive(zw *zip.Writer, source string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("failed to stat backup source %s: %w", source, err)
	}

	if !info.IsDir() {
		return e.addFile(zw, source)
	}

	return filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk backup source %s: %w", source, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return e.addFile(zw, path)
	})
}

// addFile writes one file into the archive under its slash-form path
// relative to the configuration root.
func (e *Engine) addFile(zw *zip.Writer, path string) error {
	rel, err := filepath.Rel(e.configRoot, path)
	if err != nil {
		return fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("backup source %s is outside the configuration root: %w", path, ErrInvalidArgument)
	}

	w, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup source %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", path, err)
	}

	return nil
}
