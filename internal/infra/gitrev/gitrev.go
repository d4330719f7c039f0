// Package gitrev reads the checked-out revision of the compiler repository so
// reports can name the build they tested.
package gitrev

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
)

const shortHashLen = 7

// ErrNotRepository is returned when path is not inside a git checkout.
var ErrNotRepository = errors.New("not a git repository")

// Head returns the abbreviated HEAD commit hash of the repository containing
// path. A worktree with uncommitted changes gets a "-dirty" suffix.
func Head(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", fmt.Errorf("%w: %s", ErrNotRepository, path)
	}
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", path, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}

	hash := ref.Hash().String()
	if len(hash) > shortHashLen {
		hash = hash[:shortHashLen]
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return hash, nil
	}
	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("worktree status: %w", err)
	}
	if !status.IsClean() {
		hash += "-dirty"
	}
	return hash, nil
}
