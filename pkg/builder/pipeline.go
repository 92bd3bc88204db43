package builder

import (
	"context"
	"log/slog"

	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/dockerclient"
	"github.com/elver/elver/pkg/logging"
	"github.com/elver/elver/pkg/recipe"
)

// Run performs one docker-build step: it resolves opts, makes sure a
// Dockerfile exists (generating a default one if needed) and builds the
// image on cli. It stops at the first error.
func Run(ctx context.Context, cli dockerclient.DockerClient, opts config.Options, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	cfg := config.Resolve(opts, logger)

	dockerfile, err := recipe.Ensure(cfg.Path, cfg.Dockerfile, cfg.Generate, logger)
	if err != nil {
		return nil, err
	}

	return New(cli, logger).Dispatch(ctx, cfg, dockerfile)
}
