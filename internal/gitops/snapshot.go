package gitops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExportDir holds the CSV snapshots inside a ledger directory.
const ExportDir = "export"

// Writer renders one snapshot file.
type Writer func(w io.Writer) error

// WriteSnapshot renders each file into <dir>/export/. Files are written to a
// temporary name first so a failed render leaves the previous snapshot intact.
func WriteSnapshot(dir string, files map[string]Writer) error {
	exportDir := filepath.Join(dir, ExportDir)
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	for name, render := range files {
		if err := writeFile(filepath.Join(exportDir, name), render); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func writeFile(path string, render Writer) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Snapshot writes the files and, when commit is set, commits the directory.
// It returns the commit hash, "" when nothing changed or commit is off.
func Snapshot(ctx context.Context, dir string, files map[string]Writer, commit bool, message, authorName, authorEmail string) (string, error) {
	if err := WriteSnapshot(dir, files); err != nil {
		return "", err
	}
	if !commit {
		return "", nil
	}
	if !IsRepo(dir) {
		if err := Init(ctx, dir); err != nil {
			return "", err
		}
	}
	return CommitAll(ctx, dir, message, authorName, authorEmail)
}
