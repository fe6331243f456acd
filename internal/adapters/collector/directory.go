// Package collector provides adapters that read file trees into path to content maps.
// The Directory collector doubles as the writable domain.Storage for the base directory.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CPS-IT/migrator/internal/adapters/git"
	"github.com/CPS-IT/migrator/internal/domain"
)

// Logger defines the logging interface for the collectors.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

const gitDir = ".git"

// Directory collects all files below a root directory.
// Dotfiles are included, the .git directory and VCS-ignored paths are skipped.
type Directory struct {
	root      string
	ignoreVCS bool
	logger    Logger
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// IncludeVCSIgnored includes files matched by .gitignore and .git/info/exclude.
func IncludeVCSIgnored() DirectoryOption {
	return func(d *Directory) {
		d.ignoreVCS = false
	}
}

// NewDirectory creates a Directory for root.
// Returns a domain.InvalidResourceError if root is not an existing directory.
func NewDirectory(root string, log Logger, opts ...DirectoryOption) (*Directory, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, domain.NewInvalidResourceError(root)
	}

	d := &Directory{
		root:      filepath.Clean(root),
		ignoreVCS: true,
		logger:    log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Root returns the directory path.
func (d *Directory) Root() string {
	return d.root
}

// Collect reads every file below the root, keyed by forward-slash relative path.
func (d *Directory) Collect(ctx context.Context) (map[string][]byte, error) {
	var rules *git.IgnoreRules
	if d.ignoreVCS {
		var err error
		rules, err = git.LoadIgnoreRules(ctx, d.root, d.logger)
		if err != nil {
			return nil, err
		}
	}

	files := make(map[string][]byte)
	skipped := 0
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == d.root {
			return nil
		}

		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if entry.Name() == gitDir || rules.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !entry.Type().IsRegular() {
			// Symlinks are followed to regular files only.
			info, statErr := os.Stat(p)
			if statErr != nil || !info.Mode().IsRegular() {
				skipped++
				return nil
			}
		}

		if rules.Match(rel, false) {
			skipped++
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		files[rel] = content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect directory %s: %w", d.root, err)
	}

	d.logger.Debug(ctx, "collected directory", map[string]interface{}{
		"root":    d.root,
		"files":   len(files),
		"skipped": skipped,
	})

	return files, nil
}

// WriteFile atomically replaces the file at the relative path, creating parent directories.
func (d *Directory) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := d.abs(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, ".migrator-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmp := f.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmp)
	}()

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", target, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}

// RemoveFile deletes the file at the relative path and prunes directories it leaves empty.
// A file that is already gone is not an error.
func (d *Directory) RemoveFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := d.abs(path)
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", target, err)
	}

	for dir := filepath.Dir(target); dir != d.root && len(dir) > len(d.root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			d.logger.Warn(ctx, "failed to prune empty directory", map[string]interface{}{
				"dir":   dir,
				"error": err.Error(),
			})
			break
		}
	}
	return nil
}

// abs converts a snapshot path into a path below the root.
func (d *Directory) abs(path string) string {
	return filepath.Join(d.root, filepath.FromSlash(domain.NormalizePath(path)))
}
