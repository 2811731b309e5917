package backup

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DownloadBackup copies a named archive out of the backup directory and
// returns the final destination path. A relative destination is resolved
// against the configuration root. When the destination is an existing
// directory, or ends with a path separator, the archive keeps its own
// filename inside it. Parent directories are created as needed.
func (e *Engine) DownloadBackup(name, destination string, overwrite bool) (string, error) {
	src, err := e.resolveBackupFile(name)
	if err != nil {
		return "", err
	}

	dest := resolvePath(destination, e.configRoot)
	intoDir := strings.HasSuffix(destination, "/") || strings.HasSuffix(destination, string(os.PathSeparator))
	if info, err := os.Stat(dest); (err == nil && info.IsDir()) || intoDir {
		dest = filepath.Join(dest, filepath.Base(src))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	if _, err := os.Stat(dest); err == nil && !overwrite {
		return "", fmt.Errorf("destination %s: %w", dest, ErrAlreadyExists)
	}

	if err := copyFile(src, dest); err != nil {
		return "", err
	}

	log.Printf("[Transfer] Downloaded backup %s to %s", filepath.Base(src), dest)
	return dest, nil
}

// UploadBackup copies an external archive into the backup directory and
// returns its new path. The stored filename is the given name when
// provided, else the source's own filename. Names that are absolute or
// contain a parent-directory segment are rejected; any remaining
// directory component is stripped so uploads always land flat in the
// backup directory.
func (e *Engine) UploadBackup(source, name string, overwrite bool) (string, error) {
	src := resolvePath(source, e.configRoot)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("upload source %s: %w", src, ErrNotFound)
	}

	filename := filepath.Base(src)
	if name != "" {
		if err := validateUploadName(name); err != nil {
			return "", err
		}
		filename = filepath.Base(filepath.FromSlash(name))
	}

	if err := os.MkdirAll(e.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	dest := filepath.Join(e.backupDir, filename)
	if _, err := os.Stat(dest); err == nil && !overwrite {
		return "", fmt.Errorf("backup %s: %w", filename, ErrAlreadyExists)
	}

	if err := copyFile(src, dest); err != nil {
		return "", err
	}

	log.Printf("[Transfer] Uploaded %s as backup %s", src, filename)
	return dest, nil
}

// validateUploadName rejects absolute names and names containing a
// parent-directory traversal segment anywhere in their components.
func validateUploadName(name string) error {
	slashed := filepath.ToSlash(name)
	if filepath.IsAbs(name) || strings.HasPrefix(slashed, "/") {
		return fmt.Errorf("backup name %q must be relative: %w", name, ErrInvalidArgument)
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return fmt.Errorf("backup name %q must not contain parent directory segments: %w", name, ErrInvalidArgument)
		}
	}
	return nil
}

// copyFile copies src to dest, preserving permission bits and the
// modification time.
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish copying %s: %w", dest, err)
	}

	if err := os.Chmod(dest, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dest, err)
	}
	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set timestamps on %s: %w", dest, err)
	}

	return nil
}
