// Package git provides adapters for Git working trees and ignore rules.
// This package implements domain.WorkingTreeInspector using go-git/v5.
package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// GoGitWorkingTree implements domain.WorkingTreeInspector using go-git/v5.
type GoGitWorkingTree struct {
	repo   *git.Repository
	path   string
	logger Logger
}

// NewGoGitWorkingTree opens the repository containing path.
// Parent directories are searched for the .git directory.
// Returns domain.ErrRepositoryNotFound if path is not inside a Git working tree.
func NewGoGitWorkingTree(path string, log Logger) (*GoGitWorkingTree, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	return &GoGitWorkingTree{
		repo:   repo,
		path:   path,
		logger: log,
	}, nil
}

// Inspect reports HEAD and whether the working tree has uncommitted changes.
// A repository without commits reports an empty HeadSHA.
func (w *GoGitWorkingTree) Inspect(ctx context.Context) (*domain.WorkingTree, error) {
	state := &domain.WorkingTree{}

	head, err := w.repo.Head()
	switch {
	case err == nil:
		state.HeadSHA = head.Hash().String()
		state.IsDetached = !head.Name().IsBranch()
		if head.Name().IsBranch() {
			state.Branch = head.Name().Short()
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		w.logger.Debug(ctx, "repository has no commits yet", map[string]interface{}{
			"path": w.path,
		})
	default:
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	worktree, err := w.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree status: %w", err)
	}
	state.Clean = status.IsClean()

	if !state.Clean {
		w.logger.Warn(ctx, "working tree has uncommitted changes", map[string]interface{}{
			"path":    w.path,
			"changed": len(status),
		})
	}

	w.logger.Debug(ctx, "inspected working tree", map[string]interface{}{
		"head_sha":    state.HeadSHA,
		"branch":      state.Branch,
		"is_detached": state.IsDetached,
		"clean":       state.Clean,
	})

	return state, nil
}
