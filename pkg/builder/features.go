package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/dockerclient"
)

// feature is a build option together with the engine API version that
// introduced it.
type feature struct {
	option string
	minAPI string
	inUse  func(cfg config.BuildConfig) bool
}

var features = []feature{
	{"shmsize", "1.22", func(c config.BuildConfig) bool { return c.ShmSize != 0 }},
	{"labels", "1.23", func(c config.BuildConfig) bool { return len(c.Labels) > 0 || c.VCSLabels }},
	{"cache-from", "1.25", func(c config.BuildConfig) bool { return len(c.CacheFrom) > 0 }},
	{"network-mode", "1.25", func(c config.BuildConfig) bool { return c.NetworkMode != "" }},
	{"squash", "1.25", func(c config.BuildConfig) bool { return c.Squash }},
	{"extra-hosts", "1.27", func(c config.BuildConfig) bool { return len(c.ExtraHosts) > 0 }},
	{"target", "1.29", func(c config.BuildConfig) bool { return c.Target != "" }},
	{"platform", "1.32", func(c config.BuildConfig) bool { return c.Platform != "" }},
}

// UnsupportedOptionError reports an option the engine API is too old for.
type UnsupportedOptionError struct {
	Option    string
	MinAPI    string
	EngineAPI string
}

func (e UnsupportedOptionError) Error() string {
	return fmt.Sprintf("%s was only introduced in API version %s, engine reports %s", e.Option, e.MinAPI, e.EngineAPI)
}

// checkFeatures pings the engine when cfg uses options newer than the
// oldest supported API and rejects those the engine cannot honour.
func (b *Builder) checkFeatures(ctx context.Context, cfg config.BuildConfig) error {
	var used []feature
	for _, f := range features {
		if f.inUse(cfg) {
			used = append(used, f)
		}
	}
	if len(used) == 0 {
		return nil
	}

	ping, err := dockerclient.Ping(ctx, b.cli)
	if err != nil {
		return err
	}

	if cfg.Squash && !ping.Experimental {
		b.logger.Warn("squash requires an engine with experimental features enabled")
	}

	// Engines that do not report a version are assumed current
	if ping.APIVersion == "" {
		return nil
	}
	engine, err := semver.NewVersion(ping.APIVersion)
	if err != nil {
		b.logger.Debug("unparseable engine API version", "version", ping.APIVersion, "error", err)
		return nil
	}

	for _, f := range used {
		required := semver.MustParse(f.minAPI)
		if engine.LessThan(required) {
			return UnsupportedOptionError{Option: f.option, MinAPI: f.minAPI, EngineAPI: ping.APIVersion}
		}
	}
	return nil
}

// normalizePlatform validates an "os/arch[/variant]" string and returns it
// in canonical lower-case form. An empty platform is left to the engine.
func normalizePlatform(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("invalid platform %q: expected os/arch[/variant]", s)
	}

	p := v1.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		p.Variant = parts[2]
	}
	if p.OS == "" || p.Architecture == "" {
		return "", fmt.Errorf("invalid platform %q: expected os/arch[/variant]", s)
	}

	return formatPlatform(p), nil
}

func formatPlatform(p v1.Platform) string {
	s := p.OS + "/" + p.Architecture
	if p.Variant != "" {
		s += "/" + p.Variant
	}
	return s
}
