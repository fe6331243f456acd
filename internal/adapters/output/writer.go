// Package output provides adapters for writing application output.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	patchPrefix = "failed_migration_"
	patchSuffix = ".diff"

	// maxPatchAttempts bounds the search for an unused file name.
	maxPatchAttempts = 100
)

// PatchWriter writes patch files with unique names into a directory.
type PatchWriter struct {
	dir   string
	newID func() string
}

// NewPatchWriter creates a PatchWriter that writes into dir.
func NewPatchWriter(dir string) *PatchWriter {
	return &PatchWriter{dir: dir, newID: uuid.NewString}
}

// NewPatchWriterWithIDs creates a PatchWriter with a custom ID source.
// This is useful for testing.
func NewPatchWriterWithIDs(dir string, newID func() string) *PatchWriter {
	return &PatchWriter{dir: dir, newID: newID}
}

// WritePatch writes patch to failed_migration_<id>.diff and returns its path.
// IDs are drawn until a file name is found that does not exist yet.
func (w *PatchWriter) WritePatch(patch string) (string, error) {
	for range maxPatchAttempts {
		name := filepath.Join(w.dir, patchPrefix+w.newID()+patchSuffix)

		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create patch file: %w", err)
		}

		if _, err := f.WriteString(patch); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write patch file %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close patch file %s: %w", name, err)
		}
		return name, nil
	}
	return "", fmt.Errorf("failed to find an unused patch file name in %s", w.dir)
}
