// Package domain defines the core entities and interfaces for the migrator.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors for resources, collectors and snapshots.
var (
	// ErrInvalidResource indicates a base, source or target path does not exist or has the wrong kind.
	ErrInvalidResource = errors.New("invalid resource")

	// ErrInvalidCollectorConfiguration indicates a chained collector was created without members.
	ErrInvalidCollectorConfiguration = errors.New("invalid collector configuration")

	// ErrSnapshotTooLarge indicates a collected tree exceeds the configured file or byte limits.
	ErrSnapshotTooLarge = errors.New("snapshot exceeds configured limits")

	// ErrRepositoryNotFound indicates the path is not inside a Git working tree.
	ErrRepositoryNotFound = errors.New("git repository not found")

	// ErrMigrationFailed indicates the migration outcome was not successful.
	ErrMigrationFailed = errors.New("migration failed")
)

// InvalidResourceError is returned when a supplied resource path cannot be used.
type InvalidResourceError struct {
	Resource string
}

func (e *InvalidResourceError) Error() string {
	return fmt.Sprintf("The resource %q is invalid or does not exist.", e.Resource)
}

// Is makes errors.Is(err, ErrInvalidResource) match.
func (e *InvalidResourceError) Is(target error) bool {
	return target == ErrInvalidResource
}

// NewInvalidResourceError creates an InvalidResourceError for resource.
func NewInvalidResourceError(resource string) error {
	return &InvalidResourceError{Resource: resource}
}

// Collector provides a path to content mapping of a resource.
// No ordering guarantee is required from implementations.
type Collector interface {
	// Collect reads all files of the resource.
	Collect(ctx context.Context) (map[string][]byte, error)
}

// Storage is a Collector whose files can be rewritten, e.g. the Base directory.
type Storage interface {
	Collector

	// Root returns the storage location, used for logging and messages.
	Root() string

	// WriteFile creates or replaces the file at the relative path.
	WriteFile(ctx context.Context, path string, content []byte) error

	// RemoveFile deletes the file at the relative path.
	RemoveFile(ctx context.Context, path string) error
}

// Differ computes and applies three-way diffs between collected trees.
type Differ interface {
	// GenerateDiff merges source (ancestor) -> target (theirs) into base (ours).
	// Conflicts are reported through the returned Outcome, never as errors.
	GenerateDiff(ctx context.Context, source, target Collector, base Storage) (*DiffResult, error)

	// ApplyDiff materializes a successful result onto base.
	// A refusal is reported as an ApplyResult with ApplyStatusRefused; the
	// error is reserved for faults while reading or writing base.
	ApplyDiff(ctx context.Context, result *DiffResult, base Storage) (*ApplyResult, error)
}

// Formatter renders a DiffResult for humans. ok is false when there is nothing to render.
type Formatter interface {
	Format(result *DiffResult) (text string, ok bool)
}

// PatchWriter persists patch text and returns the written location.
type PatchWriter interface {
	WritePatch(patch string) (string, error)
}

// Prompter asks the user yes/no questions.
type Prompter interface {
	Confirm(question string, defaultValue bool) (bool, error)
}

// Migrator computes a diff and optionally applies it.
type Migrator interface {
	// PerformMigrations toggles applying the computed diff.
	PerformMigrations(enabled bool)

	// Migrate computes the diff and applies it when migrations are enabled.
	Migrate(ctx context.Context, source, target Collector, base Storage) (*DiffResult, error)
}

// WorkingTreeInspector reports the version control state of a directory.
type WorkingTreeInspector interface {
	Inspect(ctx context.Context) (*WorkingTree, error)
}
