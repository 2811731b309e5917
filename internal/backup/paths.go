package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// resolvePath returns p unchanged when absolute, otherwise joined onto
// root. It never consults the filesystem; callers decide what existence
// of the result means.
func resolvePath(p, root string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// resolveBackupFile locates a named archive inside the backup directory.
// Absolute names must point directly into the backup directory. Relative
// names are joined onto it, retrying with a .zip suffix when the plain
// candidate does not exist. After lookup the parent directory is
// re-verified against the symlink-resolved backup directory so a crafted
// name cannot escape it.
func (e *Engine) resolveBackupFile(name string) (string, error) {
	var candidate string
	if filepath.IsAbs(name) {
		candidate = filepath.Clean(name)
		if filepath.Dir(candidate) != filepath.Clean(e.backupDir) {
			return "", fmt.Errorf("backup %q must reside within the backup directory: %w", name, ErrInvalidArgument)
		}
	} else {
		candidate = filepath.Join(e.backupDir, name)
	}

	if _, err := os.Stat(candidate); err != nil {
		withExt := candidate + ".zip"
		if strings.HasSuffix(candidate, ".zip") {
			return "", fmt.Errorf("backup %q: %w", name, ErrNotFound)
		}
		if _, err := os.Stat(withExt); err != nil {
			return "", fmt.Errorf("backup %q: %w", name, ErrNotFound)
		}
		candidate = withExt
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve backup path %s: %w", candidate, err)
	}
	backupDir, err := filepath.EvalSymlinks(e.backupDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if filepath.Dir(resolved) != backupDir {
		return "", fmt.Errorf("backup %q resolves outside the backup directory: %w", name, ErrInvalidArgument)
	}

	return candidate, nil
}

// securePath joins a normalized archive member name onto the canonical
// root and verifies the canonical result stays inside it. Intermediate
// directories that do not exist yet are resolved through their nearest
// existing ancestor so a symlinked parent cannot redirect the write
// outside the root.
func securePath(root, member string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(member))

	resolved, err := resolveExisting(dest)
	if err != nil {
		return "", fmt.Errorf("failed to resolve restore path %s: %w", dest, err)
	}

	if resolved != root && !strings.HasPrefix(resolved, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member %q resolves to an unsafe path: %w", member, ErrInvalidArgument)
	}

	return dest, nil
}

// resolveExisting canonicalizes the longest existing prefix of path and
// re-joins the components that do not exist yet.
func resolveExisting(path string) (string, error) {
	var remainder []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, remainder...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		remainder = append([]string{filepath.Base(current)}, remainder...)
		current = parent
	}
}

// normalizeMemberName converts a path to forward-slash form and strips a
// leading "./". Archive members and restore targets are normalized the
// same way so prefix matching compares like with like.
func normalizeMemberName(name string) string {
	return strings.TrimPrefix(filepath.ToSlash(name), "./")
}
