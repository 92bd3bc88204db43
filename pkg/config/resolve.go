package config

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/elver/elver/pkg/logging"
)

// Defaults applied by Resolve when an option is absent.
const (
	DefaultTag        = "latest"
	DefaultPath       = "."
	DefaultDockerfile = "Dockerfile"

	DefaultBaseImage = "python"
	DefaultCopyDir   = "/code"
	DefaultManifest  = "requirements.txt"
)

// Resolve applies defaults to every absent option and returns the resolved
// build configuration. Present values are passed through unchanged.
// When no repository is given a random one is generated and announced on
// logger, so the caller can record which image was produced.
func Resolve(opts Options, logger *slog.Logger) BuildConfig {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	cfg := BuildConfig{
		Path:        stringOr(opts.Path, DefaultPath),
		Dockerfile:  stringOr(opts.Dockerfile, DefaultDockerfile),
		Repository:  stringOr(opts.Repository, ""),
		Tag:         stringOr(opts.Tag, DefaultTag),
		Quiet:       boolOr(opts.Quiet, false),
		NoCache:     boolOr(opts.NoCache, false),
		Rm:          boolOr(opts.Rm, false),
		Pull:        boolOr(opts.Pull, false),
		ForceRm:     boolOr(opts.ForceRm, false),
		BuildArgs:   opts.BuildArgs,
		Labels:      opts.Labels,
		CacheFrom:   opts.CacheFrom,
		Target:      stringOr(opts.Target, ""),
		NetworkMode: stringOr(opts.NetworkMode, ""),
		Squash:      boolOr(opts.Squash, false),
		ExtraHosts:  opts.ExtraHosts,
		Platform:    stringOr(opts.Platform, ""),
		VCSLabels:   boolOr(opts.VCSLabels, false),
		Generate:    resolveGenerate(opts.Generate),
	}

	if opts.Timeout != nil {
		cfg.Timeout = time.Duration(*opts.Timeout)
	}
	if opts.ContainerLimits != nil {
		cfg.ContainerLimits = *opts.ContainerLimits
	}
	if opts.ShmSize != nil {
		cfg.ShmSize = int64(*opts.ShmSize)
	}

	// An empty repository would produce an invalid ":tag" reference.
	if cfg.Repository == "" {
		cfg.Repository = randomRepository()
		logger.Info("using a random repository", "repository", cfg.Repository)
	}

	return cfg
}

func resolveGenerate(g GenerateFlags) GenerateOptions {
	return GenerateOptions{
		BaseImage:   stringOr(g.BaseImage, DefaultBaseImage),
		EntryPoint:  stringOr(g.EntryPoint, ""),
		Cmd:         stringOr(g.Cmd, ""),
		CopyContext: !boolOr(g.SkipCopy, false),
		CopyDir:     stringOr(g.CopyDir, DefaultCopyDir),
		Manifest:    stringOr(g.Manifest, DefaultManifest),
		SkipInstall: boolOr(g.SkipInstall, false),
	}
}

// randomRepository returns a time-based UUID, falling back to a random one
// when no node ID or clock sequence is available.
func randomRepository() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
