package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// RestoreBackup extracts members of a named archive into the
// configuration root and returns the restored absolute paths in archive
// order. Targets, when given, restrict extraction to members equal to a
// target or nested under it; they must be relative paths. Every
// extraction path is canonicalized and checked for containment in the
// configuration root before any bytes are written.
//
// When a target exists and overwrite is false the restore aborts
// immediately with ErrAlreadyExists; files already extracted by the same
// call are left in place.
func (e *Engine) RestoreBackup(name string, targets []string, overwrite bool) ([]string, error) {
	archivePath, err := e.resolveBackupFile(name)
	if err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(targets))
	for _, target := range targets {
		if filepath.IsAbs(target) || strings.HasPrefix(filepath.ToSlash(target), "/") {
			return nil, fmt.Errorf("restore target %q must be relative: %w", target, ErrInvalidArgument)
		}
		normalized = append(normalized, normalizeMemberName(target))
	}

	root, err := filepath.EvalSymlinks(e.configRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configuration root: %w", err)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup %s: %w", archivePath, err)
	}
	defer zr.Close()

	var restored []string
	for _, member := range zr.File {
		if member.Name == "" || strings.HasSuffix(member.Name, "/") || strings.HasSuffix(member.Name, "\\") {
			continue
		}

		memberName := normalizeMemberName(member.Name)
		if strings.HasPrefix(memberName, "/") {
			return restored, fmt.Errorf("archive member %q resolves to an unsafe path: %w", member.Name, ErrInvalidArgument)
		}
		if len(normalized) > 0 && !matchesTarget(memberName, normalized) {
			continue
		}

		dest, err := securePath(root, memberName)
		if err != nil {
			return restored, err
		}

		if _, err := os.Lstat(dest); err == nil && !overwrite {
			return restored, fmt.Errorf("restore target %s: %w", dest, ErrAlreadyExists)
		}

		if err := extractMember(member, dest); err != nil {
			return restored, err
		}
		restored = append(restored, dest)
	}

	log.Printf("[Restore] Restored %d files from %s", len(restored), filepath.Base(archivePath))
	return restored, nil
}

// matchesTarget reports whether a normalized member name equals one of
// the targets or is nested under one.
func matchesTarget(member string, targets []string) bool {
	for _, target := range targets {
		if member == target || strings.HasPrefix(member, target+"/") {
			return true
		}
	}
	return false
}

// extractMember streams one archive member to dest, creating parent
// directories as needed.
func extractMember(member *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("failed to read archive member %s: %w", member.Name, err)
	}
	defer rc.Close()

	mode := member.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create restore target %s: %w", dest, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", member.Name, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish restoring %s: %w", dest, err)
	}

	return nil
}
