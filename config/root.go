package config

import (
	"path/filepath"

	"github.com/flanksource/commons/logger"
	"github.com/go-git/go-git/v5"
)

// FindProjectRoot returns the root of the git work tree containing dir, or dir itself
// when it is not inside a repository.
func FindProjectRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logger.V(4).Infof("%s is not inside a git repository: %v", dir, err)
		return dir
	}
	wt, err := repo.Worktree()
	if err != nil {
		return dir
	}
	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return dir
	}
	return root
}
