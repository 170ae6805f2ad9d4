package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFilter answers whether a path is ignored by the .gitignore files of
// a worktree, its info/exclude file, and the user's global excludes.
type IgnoreFilter struct {
	root    string
	matcher gitignore.Matcher
}

// NewIgnoreFilter reads every ignore file under root.
func NewIgnoreFilter(root string) (*IgnoreFilter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	patterns, err := gitignore.ReadPatterns(osfs.New(absRoot), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore patterns: %w", err)
	}

	// Global and system excludes are optional.
	rootFS := osfs.New("/")
	if global, err := gitignore.LoadGlobalPatterns(rootFS); err == nil {
		patterns = append(global, patterns...)
	}
	if system, err := gitignore.LoadSystemPatterns(rootFS); err == nil {
		patterns = append(system, patterns...)
	}

	return &IgnoreFilter{
		root:    absRoot,
		matcher: gitignore.NewMatcher(patterns),
	}, nil
}

// IsIgnored reports whether path is ignored. Paths outside the worktree are
// never ignored.
func (f *IgnoreFilter) IsIgnored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if parts[len(parts)-1] == ".git" {
		return true
	}

	isDir := false
	if info, err := os.Lstat(path); err == nil {
		isDir = info.IsDir()
	}
	return f.matcher.Match(parts, isDir)
}
