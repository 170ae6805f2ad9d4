package git

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

type Repository struct {
	repo *git.Repository
	path string
}

// OpenRepo opens the repository containing path, searching parent
// directories for the .git directory.
func OpenRepo(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", absPath, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return &Repository{
		repo: repo,
		path: wt.Filesystem.Root(),
	}, nil
}

// FindRepoRoot returns the worktree root containing path, if any.
func FindRepoRoot(path string) (string, bool) {
	r, err := OpenRepo(path)
	if err != nil {
		return "", false
	}
	return r.Path(), true
}

// IsNotRepo reports whether err means no repository was found.
func IsNotRepo(err error) bool {
	return errors.Is(err, git.ErrRepositoryNotExists)
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) HeadHash() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// IgnoreFilter loads the repository's ignore rules.
func (r *Repository) IgnoreFilter() (*IgnoreFilter, error) {
	return NewIgnoreFilter(r.path)
}
