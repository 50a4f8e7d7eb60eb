// Package gitinfo reads source revision state from the manuscript checkout.
// The publisher uses it to refuse uploading an artifact built from a revision
// that is no longer HEAD (last-writer-wins across overlapping runs).
package gitinfo

import (
	"errors"

	"github.com/go-git/go-git/v5"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
)

// Head returns the current HEAD commit hash of the repository containing
// path. A path outside any repository returns an empty revision and no
// error; revision guarding is then disabled for the run.
func Head(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", nil
		}
		return "", apperrors.GitError("open repository", err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", apperrors.GitError("resolve HEAD", err)
	}
	return ref.Hash().String(), nil
}

// ShortHead returns Head truncated to 8 characters for log output.
func ShortHead(path string) string {
	rev, err := Head(path)
	if err != nil || len(rev) < 8 {
		return rev
	}
	return rev[:8]
}
