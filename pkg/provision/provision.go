// Package provision resolves a project's configured content root onto
// local disk before a build runs (component J, SPEC_FULL.md §4.F). It is
// plumbing, not a build-semantics change: it only decides where the Pad
// reads content from, adapted from the teacher's pkg/resolver git
// resolution (resolveGit/gitClone), repointed from component references
// to whole content-root checkouts.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/lektor-go/lektor/pkg/errors"
)

// ResolveRoot resolves ref to a local directory. ref is either a local
// filesystem path, or a "git::<url>[?ref=<branch>]" reference that gets
// shallow-cloned (or pulled, if already cloned) into cacheDir.
func ResolveRoot(ctx context.Context, ref, cacheDir string) (string, error) {
	if !strings.HasPrefix(ref, "git::") {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeGitFetch, "resolve local content root", err)
		}
		return abs, nil
	}

	gitURL := strings.TrimPrefix(ref, "git::")
	gitRef := "main"
	if idx := strings.Index(gitURL, "?"); idx != -1 {
		query := gitURL[idx+1:]
		gitURL = gitURL[:idx]
		for _, param := range strings.Split(query, "&") {
			kv := strings.SplitN(param, "=", 2)
			if len(kv) == 2 && kv[0] == "ref" {
				gitRef = kv[1]
			}
		}
	}

	cacheKey := strings.NewReplacer("/", "_", ":", "_", ".", "_").Replace(gitURL)
	repoDir := filepath.Join(cacheDir, "content-root", cacheKey, gitRef)

	if _, err := os.Stat(repoDir); os.IsNotExist(err) {
		if err := clone(ctx, gitURL, gitRef, repoDir); err != nil {
			return "", errors.Wrap(errors.ErrCodeGitFetch, "clone content root", err).WithDetail("url", gitURL)
		}
	} else if err := pull(ctx, repoDir); err != nil {
		return "", errors.Wrap(errors.ErrCodeGitFetch, "update content root", err).WithDetail("url", gitURL)
	}

	return repoDir, nil
}

func clone(ctx context.Context, url, ref, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	opts := &git.CloneOptions{
		URL:           url,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.NewBranchReferenceName(ref),
	}
	_, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		opts.ReferenceName = plumbing.NewTagReferenceName(ref)
		_, err = git.PlainCloneContext(ctx, dest, false, opts)
	}
	if err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

func pull(ctx context.Context, dest string) error {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &git.PullOptions{Depth: 1, SingleBranch: true})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return err
	}
	return nil
}
