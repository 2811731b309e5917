package backup

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeZip creates an archive with the given member names and contents
// directly inside dir, bypassing the archiver.
func writeZip(t *testing.T, dir, name string, members map[string]string, order []string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	archivePath := filepath.Join(dir, name)
	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, memberName := range order {
		w, err := zw.Create(memberName)
		if err != nil {
			t.Fatalf("failed to add member: %v", err)
		}
		if _, err := w.Write([]byte(members[memberName])); err != nil {
			t.Fatalf("failed to write member: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return archivePath
}

func TestRestoreBackupRoundTrip(t *testing.T) {
	root := t.TempDir()
	sourceDir := filepath.Join(root, "source")
	restoreDir := filepath.Join(root, "restore")
	backupDir := filepath.Join(root, "backups")
	for _, dir := range []string{sourceDir, restoreDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}

	files := map[string]string{
		"configuration.yaml":       "config: true",
		"automations/morning.yaml": "alias: morning",
		"scripts/cleanup.yaml":     "alias: cleanup",
	}
	for name, content := range files {
		writeFile(t, filepath.Join(sourceDir, filepath.FromSlash(name)), content)
	}

	creator := NewEngine(backupDir, sourceDir, nil, 0)
	archivePath, err := creator.CreateBackup([]string{"configuration.yaml", "automations", "scripts"})
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	restorer := NewEngine(backupDir, restoreDir, nil, 0)
	restored, err := restorer.RestoreBackup(filepath.Base(archivePath), nil, true)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if len(restored) != len(files) {
		t.Fatalf("expected %d restored files, got %d", len(files), len(restored))
	}

	for name, content := range files {
		data, err := os.ReadFile(filepath.Join(restoreDir, filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("restored file missing: %v", err)
		}
		if string(data) != content {
			t.Fatalf("restored content mismatch for %s", name)
		}
	}
}

func TestRestoreBackupIdempotent(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	writeZip(t, backupDir, "snapshot.zip", map[string]string{
		"a.yaml":     "a",
		"sub/b.yaml": "b",
	}, []string{"a.yaml", "sub/b.yaml"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	first, err := engine.RestoreBackup("snapshot", nil, true)
	if err != nil {
		t.Fatalf("first restore failed: %v", err)
	}
	second, err := engine.RestoreBackup("snapshot", nil, true)
	if err != nil {
		t.Fatalf("second restore failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical restore sets, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("restore order changed: %q vs %q", first[i], second[i])
		}
	}
}

func TestRestoreBackupTargets(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	writeZip(t, backupDir, "snapshot.zip", map[string]string{
		"configuration.yaml":   "config",
		"automations/a.yaml":   "a",
		"automations/b.yaml":   "b",
		"automations.yaml":     "top",
		"scripts/cleanup.yaml": "cleanup",
	}, []string{"configuration.yaml", "automations/a.yaml", "automations/b.yaml", "automations.yaml", "scripts/cleanup.yaml"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	restored, err := engine.RestoreBackup("snapshot.zip", []string{"./automations"}, true)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// "automations" matches the directory members but not the sibling
	// automations.yaml file.
	if len(restored) != 2 {
		t.Fatalf("expected 2 restored files, got %d: %v", len(restored), restored)
	}
	if _, err := os.Stat(filepath.Join(configDir, "automations.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected automations.yaml to be skipped")
	}
	if _, err := os.Stat(filepath.Join(configDir, "configuration.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected configuration.yaml to be skipped")
	}
}

func TestRestoreBackupAbsoluteTarget(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	writeZip(t, backupDir, "snapshot.zip", map[string]string{"a.yaml": "a"}, []string{"a.yaml"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	_, err := engine.RestoreBackup("snapshot.zip", []string{"/etc"}, true)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for absolute target, got %v", err)
	}
}

func TestRestoreBackupTraversalMember(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	writeZip(t, backupDir, "evil.zip", map[string]string{
		"../../escape.txt": "evil",
	}, []string{"../../escape.txt"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	_, err := engine.RestoreBackup("evil.zip", nil, true)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected no file outside the configuration root")
	}
}

func TestRestoreBackupAbsoluteMember(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	writeZip(t, backupDir, "evil.zip", map[string]string{
		"/tmp/escape.txt": "evil",
	}, []string{"/tmp/escape.txt"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	_, err := engine.RestoreBackup("evil.zip", nil, true)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRestoreBackupSymlinkedParent(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	outsideDir := filepath.Join(root, "outside")
	for _, dir := range []string{configDir, outsideDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}

	// A symlinked directory inside the root must not let members escape.
	if err := os.Symlink(outsideDir, filepath.Join(configDir, "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	writeZip(t, backupDir, "evil.zip", map[string]string{
		"link/escape.txt": "evil",
	}, []string{"link/escape.txt"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	_, err := engine.RestoreBackup("evil.zip", nil, true)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outsideDir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected no file outside the configuration root")
	}
}

func TestRestoreBackupExistingTargetWithoutOverwrite(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	writeFile(t, filepath.Join(configDir, "b.yaml"), "existing")

	writeZip(t, backupDir, "snapshot.zip", map[string]string{
		"a.yaml": "a",
		"b.yaml": "b",
	}, []string{"a.yaml", "b.yaml"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	restored, err := engine.RestoreBackup("snapshot.zip", nil, false)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// a.yaml was extracted before the conflict and stays in place.
	if len(restored) != 1 {
		t.Fatalf("expected 1 file restored before abort, got %d", len(restored))
	}
	if _, err := os.Stat(filepath.Join(configDir, "a.yaml")); err != nil {
		t.Fatalf("expected a.yaml to remain: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(configDir, "b.yaml"))
	if string(data) != "existing" {
		t.Fatalf("expected b.yaml to be untouched")
	}
}

func TestRestoreBackupSkipsDirectoryMarkers(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	writeZip(t, backupDir, "snapshot.zip", map[string]string{
		"sub/":       "",
		"sub/a.yaml": "a",
	}, []string{"sub/", "sub/a.yaml"})

	engine := NewEngine(backupDir, configDir, nil, 0)
	restored, err := engine.RestoreBackup("snapshot.zip", nil, true)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if len(restored) != 1 {
		t.Fatalf("expected directory marker to be skipped, got %v", restored)
	}
}
