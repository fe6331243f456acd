package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CPS-IT/migrator/internal/domain"
)

// File collects a single file, keyed by its path relative to a base directory.
type File struct {
	path    string
	baseDir string
	key     string
}

// NewFile creates a File collector. An empty baseDir defaults to the file's directory.
// Returns a domain.InvalidResourceError if path is not an existing regular file
// or does not live below baseDir.
func NewFile(path, baseDir string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, domain.NewInvalidResourceError(path)
	}

	if baseDir == "" {
		baseDir = filepath.Dir(path)
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, domain.NewInvalidResourceError(path)
	}

	return &File{
		path:    path,
		baseDir: baseDir,
		key:     filepath.ToSlash(rel),
	}, nil
}

// BaseDir returns the directory the collected key is relative to.
func (f *File) BaseDir() string {
	return f.baseDir
}

// Collect reads the file.
func (f *File) Collect(ctx context.Context) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return map[string][]byte{f.key: content}, nil
}

// NewForPath creates a Directory collector for directories and a File
// collector relative to the file's own directory otherwise.
func NewForPath(path string, log Logger) (domain.Collector, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewInvalidResourceError(path)
	}
	if info.IsDir() {
		return NewDirectory(path, log)
	}
	return NewFile(path, "")
}
