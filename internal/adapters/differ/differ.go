// Package differ implements domain.Differ with an in-memory three-way merge.
// Source, target and base are collected into snapshots, merged, and the merged
// tree is materialized onto the base directory on apply.
package differ

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/CPS-IT/migrator/internal/domain"
	"github.com/CPS-IT/migrator/internal/linediff"
	"github.com/CPS-IT/migrator/internal/merge"
)

// Logger defines the logging interface required by the differ.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Options configures a ThreeWayDiffer.
type Options struct {
	// ContextLines is the number of unchanged lines around each hunk change.
	ContextLines int

	// MaxTextBytes is the size above which files are treated as binary.
	MaxTextBytes int64

	Renames merge.RenameOptions

	// IgnorePatterns are gitignore-style patterns excluded from the merge.
	IgnorePatterns []string

	Limits Limits
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ContextLines: linediff.DefaultContext,
		MaxTextBytes: linediff.DefaultMaxTextBytes,
		Renames:      merge.DefaultRenameOptions(),
	}
}

// ThreeWayDiffer implements domain.Differ.
type ThreeWayDiffer struct {
	lines  *linediff.Differ
	engine *merge.Engine
	limits Limits
	logger Logger
}

// New creates a ThreeWayDiffer.
func New(opts Options, log Logger) *ThreeWayDiffer {
	lines := linediff.New(
		linediff.WithContext(opts.ContextLines),
		linediff.WithMaxTextBytes(opts.MaxTextBytes),
	)
	return &ThreeWayDiffer{
		lines: lines,
		engine: merge.NewEngine(lines,
			merge.WithRenames(opts.Renames),
			merge.WithIgnore(merge.NewIgnoreMatcher(opts.IgnorePatterns)),
		),
		limits: opts.Limits,
		logger: log,
	}
}

// GenerateDiff merges the source -> target changes into base without touching base.
func (d *ThreeWayDiffer) GenerateDiff(
	ctx context.Context,
	source, target domain.Collector,
	base domain.Storage,
) (*domain.DiffResult, error) {
	ancestor, err := d.snapshot(ctx, "source", source)
	if err != nil {
		return nil, err
	}
	theirs, err := d.snapshot(ctx, "target", target)
	if err != nil {
		return nil, err
	}
	ours, err := d.snapshot(ctx, "base", base)
	if err != nil {
		return nil, err
	}

	res := d.engine.Merge(ancestor, ours, theirs)

	entries := make([]patchEntry, 0, len(res.Changes))
	objects := make([]domain.DiffObject, 0, len(res.Changes))
	for _, c := range res.Changes {
		entry := d.entry(c)
		objects = append(objects, entry.object)
		if c.Mode != domain.DiffModeIgnored {
			entries = append(entries, entry)
		}
	}

	outcome := domain.Successful()
	if !res.Clean() {
		outcome = domain.Failed("Conflicts in: " + strings.Join(res.ConflictPaths(), ", "))
	}

	d.logger.Info(ctx, "generated diff", map[string]interface{}{
		"base":       base.Root(),
		"changes":    len(objects),
		"conflicts":  len(res.Conflicts),
		"successful": outcome.IsSuccessful(),
	})

	return domain.NewDiffResult(objects, renderPatch(entries), outcome).WithTrees(ours, res.Merged), nil
}

// entry converts a merge change into its diff object and patch section.
func (d *ThreeWayDiffer) entry(c merge.Change) patchEntry {
	obj := domain.DiffObject{
		Mode:            c.Mode,
		OriginalPath:    c.OriginalPath,
		DestinationPath: c.DestinationPath,
	}
	e := patchEntry{oldPresent: c.OldPresent, newPresent: c.NewPresent}
	if c.Mode == domain.DiffModeIgnored {
		e.object = obj
		return e
	}

	changed := c.OldPresent != c.NewPresent || !bytes.Equal(c.Old, c.New)
	obj.Binary = changed && (d.lines.IsBinary(c.Old) || d.lines.IsBinary(c.New))

	e.hunks = d.lines.Hunks(c.Old, c.New)
	if c.Mode != domain.DiffModeDeleted {
		obj.Hunks = e.hunks
	}
	e.object = obj
	return e
}

// ApplyDiff writes the merged tree of a successful result onto base.
// Results that failed, carry no merged tree, or were computed against a base
// that has changed since are refused and base is left untouched.
func (d *ThreeWayDiffer) ApplyDiff(
	ctx context.Context,
	result *domain.DiffResult,
	base domain.Storage,
) (*domain.ApplyResult, error) {
	if !result.Outcome().IsSuccessful() {
		d.logger.Warn(ctx, "refusing to apply unsuccessful diff", map[string]interface{}{
			"base":    base.Root(),
			"outcome": result.Outcome().Message(),
		})
		return domain.NewRefusal(result), nil
	}

	ours, merged, ok := result.Trees()
	if !ok {
		d.logger.Warn(ctx, "refusing to apply diff without merged tree", map[string]interface{}{
			"base": base.Root(),
		})
		return domain.NewRefusal(result), nil
	}

	current, err := d.snapshot(ctx, "base", base)
	if err != nil {
		return nil, err
	}
	if !current.Equal(ours) {
		d.logger.Warn(ctx, "refusing to apply diff, base changed since it was generated", map[string]interface{}{
			"base": base.Root(),
		})
		return domain.NewRefusal(result), nil
	}

	applied := &domain.ApplyResult{Status: domain.ApplyStatusApplied, Result: result}
	var errs *multierror.Error

	// Stale paths go first so a file can turn into a directory and back.
	current.Range(func(p string, _ []byte) bool {
		if merged.Has(p) {
			return true
		}
		if err := base.RemoveFile(ctx, p); err != nil {
			errs = multierror.Append(errs, err)
			return true
		}
		applied.Removed = append(applied.Removed, p)
		return true
	})

	merged.Range(func(p string, content []byte) bool {
		if existing, ok := current.Get(p); ok && bytes.Equal(existing, content) {
			return true
		}
		if err := base.WriteFile(ctx, p, content); err != nil {
			errs = multierror.Append(errs, err)
			return true
		}
		applied.Written = append(applied.Written, p)
		return true
	})

	if err := errs.ErrorOrNil(); err != nil {
		d.logger.Error(ctx, "failed to apply diff", err, map[string]interface{}{
			"base":    base.Root(),
			"written": len(applied.Written),
			"removed": len(applied.Removed),
		})
		return nil, fmt.Errorf("failed to apply diff to %s: %w", base.Root(), err)
	}

	d.logger.Info(ctx, "applied diff", map[string]interface{}{
		"base":    base.Root(),
		"written": len(applied.Written),
		"removed": len(applied.Removed),
	})

	return applied, nil
}
