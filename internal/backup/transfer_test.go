package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTransferEngine(t *testing.T) (*Engine, string, string) {
	t.Helper()
	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	backupDir := filepath.Join(root, "backups")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	return NewEngine(backupDir, configDir, nil, 0), configDir, backupDir
}

func TestDownloadBackupToDirectory(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	writeFile(t, filepath.Join(backupDir, "ha_backup_20230101_120000.zip"), "archive")

	destDir := filepath.Join(configDir, "exports")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatalf("failed to create dest dir: %v", err)
	}

	dest, err := engine.DownloadBackup("ha_backup_20230101_120000.zip", destDir, false)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if dest != filepath.Join(destDir, "ha_backup_20230101_120000.zip") {
		t.Fatalf("unexpected destination: %s", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "archive" {
		t.Fatalf("downloaded content mismatch: %v", err)
	}
}

func TestDownloadBackupTrailingSeparator(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	writeFile(t, filepath.Join(backupDir, "ha_backup_20230101_120000.zip"), "archive")

	dest, err := engine.DownloadBackup("ha_backup_20230101_120000", "exports/", false)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if dest != filepath.Join(configDir, "exports", "ha_backup_20230101_120000.zip") {
		t.Fatalf("unexpected destination: %s", dest)
	}
}

func TestDownloadBackupToFilePath(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	writeFile(t, filepath.Join(backupDir, "ha_backup_20230101_120000.zip"), "archive")

	dest, err := engine.DownloadBackup("ha_backup_20230101_120000.zip", "copies/renamed.zip", false)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if dest != filepath.Join(configDir, "copies", "renamed.zip") {
		t.Fatalf("unexpected destination: %s", dest)
	}
}

func TestDownloadBackupConflict(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	writeFile(t, filepath.Join(backupDir, "ha_backup_20230101_120000.zip"), "archive")
	writeFile(t, filepath.Join(configDir, "existing.zip"), "old")

	_, err := engine.DownloadBackup("ha_backup_20230101_120000.zip", "existing.zip", false)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	dest, err := engine.DownloadBackup("ha_backup_20230101_120000.zip", "existing.zip", true)
	if err != nil {
		t.Fatalf("overwrite download failed: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "archive" {
		t.Fatalf("expected overwrite to replace content")
	}
}

func TestDownloadBackupNotFound(t *testing.T) {
	engine, _, _ := newTransferEngine(t)

	_, err := engine.DownloadBackup("missing", "out.zip", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadBackupDefaultName(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	writeFile(t, filepath.Join(configDir, "external.zip"), "payload")

	dest, err := engine.UploadBackup("external.zip", "", false)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if dest != filepath.Join(backupDir, "external.zip") {
		t.Fatalf("unexpected destination: %s", dest)
	}
}

func TestUploadBackupTraversalName(t *testing.T) {
	engine, configDir, _ := newTransferEngine(t)
	writeFile(t, filepath.Join(configDir, "external.zip"), "payload")

	for _, name := range []string{"../evil.zip", "sub/../../evil.zip", "/abs/evil.zip"} {
		if _, err := engine.UploadBackup("external.zip", name, false); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for name %q, got %v", name, err)
		}
	}
}

func TestUploadBackupStripsDirectoryComponent(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	writeFile(t, filepath.Join(configDir, "external.zip"), "payload")

	dest, err := engine.UploadBackup("external.zip", "sub/evil.zip", false)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if dest != filepath.Join(backupDir, "evil.zip") {
		t.Fatalf("expected directory component to be stripped, got %s", dest)
	}
	if _, err := os.Stat(filepath.Join(backupDir, "sub")); !os.IsNotExist(err) {
		t.Fatalf("expected no subdirectory inside the backup directory")
	}
}

func TestUploadBackupSourceMissing(t *testing.T) {
	engine, _, _ := newTransferEngine(t)

	_, err := engine.UploadBackup("missing.zip", "", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadBackupConflict(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	writeFile(t, filepath.Join(configDir, "external.zip"), "new")
	writeFile(t, filepath.Join(backupDir, "external.zip"), "old")

	_, err := engine.UploadBackup("external.zip", "", false)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	dest, err := engine.UploadBackup("external.zip", "", true)
	if err != nil {
		t.Fatalf("overwrite upload failed: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "new" {
		t.Fatalf("expected overwrite to replace content")
	}
}

func TestCopyFilePreservesMetadata(t *testing.T) {
	engine, configDir, backupDir := newTransferEngine(t)
	src := filepath.Join(configDir, "external.zip")
	writeFile(t, src, "payload")
	if err := os.Chmod(src, 0600); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}

	dest, err := engine.UploadBackup("external.zip", "", false)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	srcInfo, _ := os.Stat(src)
	destInfo, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if destInfo.Mode().Perm() != srcInfo.Mode().Perm() {
		t.Fatalf("expected permissions %v, got %v", srcInfo.Mode().Perm(), destInfo.Mode().Perm())
	}
	if !destInfo.ModTime().Equal(srcInfo.ModTime()) {
		t.Fatalf("expected mtime %v, got %v", srcInfo.ModTime(), destInfo.ModTime())
	}
	if dest != filepath.Join(backupDir, "external.zip") {
		t.Fatalf("unexpected destination: %s", dest)
	}
}
