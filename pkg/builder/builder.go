// Package builder turns a resolved build configuration into a Docker image
// build request and reports the result.
package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"

	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/dockerclient"
	"github.com/elver/elver/pkg/logging"
	"github.com/elver/elver/pkg/recipe"
)

// Builder submits image builds to a Docker engine.
type Builder struct {
	cli    dockerclient.DockerClient
	logger *slog.Logger
}

// New creates a Builder. A nil logger discards output.
func New(cli dockerclient.DockerClient, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Builder{cli: cli, logger: logger}
}

// Dispatch builds the image described by cfg using the Dockerfile at
// dockerfile (relative to cfg.Path). It blocks until the engine finishes.
// Engine errors are returned wrapped; nothing is cleaned up locally.
func (b *Builder) Dispatch(ctx context.Context, cfg config.BuildConfig, dockerfile string) (*BuildResult, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := b.checkFeatures(ctx, cfg); err != nil {
		return nil, err
	}

	opts, err := b.imageBuildOptions(cfg, dockerfile)
	if err != nil {
		return nil, err
	}

	imageID, err := b.buildImage(ctx, cfg.Path, opts)
	if err != nil {
		return nil, err
	}

	ref := cfg.Reference()
	b.logger.Info("image built", "id", imageID, "reference", ref)

	return &BuildResult{
		ImageID:   imageID,
		Reference: ref,
		Recipe:    dockerfile,
		Generated: dockerfile == recipe.GeneratedName,
	}, nil
}

// imageBuildOptions maps cfg onto the engine's build request. Labels are
// copied before VCS labels are added so cfg stays untouched.
func (b *Builder) imageBuildOptions(cfg config.BuildConfig, dockerfile string) (types.ImageBuildOptions, error) {
	platform, err := normalizePlatform(cfg.Platform)
	if err != nil {
		return types.ImageBuildOptions{}, err
	}

	labels := cfg.Labels
	if cfg.VCSLabels {
		labels = mergeLabels(cfg.Labels, vcsLabels(cfg.Path, b.logger))
	}

	return types.ImageBuildOptions{
		Tags:           []string{cfg.Reference()},
		Dockerfile:     dockerfile,
		SuppressOutput: cfg.Quiet,
		NoCache:        cfg.NoCache,
		Remove:         cfg.Rm,
		ForceRemove:    cfg.ForceRm,
		PullParent:     cfg.Pull,
		BuildArgs:      buildArgs(cfg.BuildArgs),
		Memory:         int64(cfg.ContainerLimits.Memory),
		MemorySwap:     int64(cfg.ContainerLimits.MemSwap),
		CPUShares:      cfg.ContainerLimits.CPUShares,
		CPUSetCPUs:     cfg.ContainerLimits.CPUSetCPUs,
		ShmSize:        cfg.ShmSize,
		Labels:         labels,
		CacheFrom:      cfg.CacheFrom,
		Target:         cfg.Target,
		NetworkMode:    cfg.NetworkMode,
		Squash:         cfg.Squash,
		ExtraHosts:     extraHosts(cfg.ExtraHosts),
		Platform:       platform,
	}, nil
}

func (b *Builder) buildImage(ctx context.Context, contextPath string, opts types.ImageBuildOptions) (string, error) {
	b.logger.Debug("building image", "tag", opts.Tags[0], "dockerfile", opts.Dockerfile, "context", contextPath)

	buildContext, err := contextArchive(contextPath, opts.Dockerfile)
	if err != nil {
		return "", err
	}
	defer buildContext.Close()

	resp, err := b.cli.ImageBuild(ctx, buildContext, opts)
	if err != nil {
		return "", fmt.Errorf("building image: %w", err)
	}
	defer resp.Body.Close()

	return streamBuildOutput(resp.Body, b.logger)
}
