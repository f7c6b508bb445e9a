// Package gitclone implements the cache's clone capability on go-git.
// Cancellation and timeouts are owned by the caller's context; no retry or
// backoff happens here.
package gitclone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitCloner clones repositories with go-git. Clones are shallow and
// single-branch; the resulting tree is stripped of its .git directory so
// cache entries are plain template trees.
type GitCloner struct {
	depth int
}

// Option configures a GitCloner.
type Option func(*GitCloner)

// WithDepth overrides the clone depth. Depth 0 means a full clone.
func WithDepth(depth int) Option {
	return func(c *GitCloner) { c.depth = depth }
}

// New creates a GitCloner with shallow single-branch defaults.
func New(opts ...Option) *GitCloner {
	c := &GitCloner{depth: 1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone fetches repoURL at branch into destDir. An empty branch clones the
// remote's default branch. destDir must already exist.
func (c *GitCloner) Clone(ctx context.Context, repoURL, branch, destDir string) error {
	cloneOpts := &git.CloneOptions{
		URL:          repoURL,
		Depth:        c.depth,
		SingleBranch: true,
	}
	if branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	if _, err := git.PlainCloneContext(ctx, destDir, false, cloneOpts); err != nil {
		return fmt.Errorf("git clone %s: %w", repoURL, err)
	}

	// Cache entries are template content, not working repositories.
	if err := os.RemoveAll(filepath.Join(destDir, ".git")); err != nil {
		return fmt.Errorf("stripping .git from clone of %s: %w", repoURL, err)
	}

	return nil
}
