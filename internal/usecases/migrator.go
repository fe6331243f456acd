// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Logger defines the logging interface required by the migrator.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Migrator computes the diff between a source and target tree and replays it onto a base directory.
// Migrations are performed by default; a dry run only computes the diff.
type Migrator struct {
	differ            domain.Differ
	logger            Logger
	migrationsEnabled bool
}

// NewMigrator creates a new Migrator with the given dependencies.
func NewMigrator(differ domain.Differ, log Logger) *Migrator {
	return &Migrator{
		differ:            differ,
		logger:            log,
		migrationsEnabled: true,
	}
}

// PerformMigrations toggles whether Migrate applies the computed diff.
func (m *Migrator) PerformMigrations(enabled bool) {
	m.migrationsEnabled = enabled
}

// MigrationsEnabled reports whether Migrate applies the computed diff.
func (m *Migrator) MigrationsEnabled() bool {
	return m.migrationsEnabled
}

// Migrate computes the diff and, when migrations are enabled, hands it to the
// differ for applying regardless of its outcome; the differ refuses
// unsuccessful results. A refusal yields the refusal's result.
func (m *Migrator) Migrate(
	ctx context.Context,
	source, target domain.Collector,
	base domain.Storage,
) (*domain.DiffResult, error) {
	m.logger.Info(ctx, "starting migration", map[string]interface{}{
		"base":    base.Root(),
		"dry_run": !m.migrationsEnabled,
	})

	result, err := m.differ.GenerateDiff(ctx, source, target, base)
	if err != nil {
		return nil, fmt.Errorf("failed to generate diff: %w", err)
	}

	m.logger.Debug(ctx, "computed diff", map[string]interface{}{
		"diff_objects": len(result.DiffObjects()),
		"successful":   result.Outcome().IsSuccessful(),
	})

	if !m.migrationsEnabled {
		return result, nil
	}

	applied, err := m.differ.ApplyDiff(ctx, result, base)
	if err != nil {
		return nil, fmt.Errorf("failed to apply diff: %w", err)
	}

	if applied.Refused() {
		m.logger.Warn(ctx, "diff was not applied", map[string]interface{}{
			"base":    base.Root(),
			"outcome": applied.Result.Outcome().Message(),
		})
		return applied.Result, nil
	}

	m.logger.Info(ctx, "migration applied", map[string]interface{}{
		"base":    base.Root(),
		"written": len(applied.Written),
		"removed": len(applied.Removed),
	})

	return result, nil
}
