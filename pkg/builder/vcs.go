package builder

import (
	"errors"
	"log/slog"

	"github.com/go-git/go-git/v5"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// vcsLabels returns OCI annotation labels describing the git checkout that
// contains contextPath. Outside a repository it returns nil.
func vcsLabels(contextPath string, logger *slog.Logger) map[string]string {
	repo, err := git.PlainOpenWithOptions(contextPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			logger.Debug("build context is not in a git repository, skipping vcs labels", "path", contextPath)
		} else {
			logger.Warn("opening git repository", "path", contextPath, "error", err)
		}
		return nil
	}

	labels := map[string]string{}

	if head, err := repo.Head(); err == nil {
		labels[v1.AnnotationRevision] = head.Hash().String()
	} else {
		logger.Debug("resolving HEAD", "error", err)
	}

	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			labels[v1.AnnotationSource] = urls[0]
		}
	}

	if len(labels) == 0 {
		return nil
	}
	return labels
}
