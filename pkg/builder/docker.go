package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docker/docker/pkg/archive"
	"github.com/moby/patternmatcher/ignorefile"
)

// buildOutput represents a Docker build output message.
type buildOutput struct {
	Stream      string `json:"stream"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
	Aux struct {
		ID string `json:"ID"`
	} `json:"aux"`
}

// streamBuildOutput reads the engine's JSON message stream and returns the
// built image ID. With output suppressed the engine sends the ID as the only
// stream message instead of an aux message; older engines only report it in
// the final "Successfully built" line.
func streamBuildOutput(reader io.Reader, logger *slog.Logger) (string, error) {
	decoder := json.NewDecoder(reader)
	var imageID, builtID string

	for {
		var output buildOutput
		if err := decoder.Decode(&output); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("decoding build output: %w", err)
		}

		if output.Error != "" {
			return "", fmt.Errorf("build error: %s", output.Error)
		}

		if output.Aux.ID != "" {
			imageID = output.Aux.ID
		}

		stream := strings.TrimSpace(output.Stream)
		if stream == "" {
			continue
		}
		if imageID == "" && strings.HasPrefix(stream, "sha256:") {
			imageID = stream
			continue
		}
		if id, ok := strings.CutPrefix(stream, "Successfully built "); ok {
			builtID = strings.TrimSpace(id)
		}
		logger.Debug("build output", "line", stream)
	}

	if imageID == "" {
		imageID = builtID
	}
	if imageID == "" {
		return "", errors.New("build finished without an image ID")
	}
	return imageID, nil
}

// contextArchive tars the build context, honouring .dockerignore. The
// Dockerfile and .dockerignore are always sent so the engine can read them.
func contextArchive(contextPath, dockerfile string) (io.ReadCloser, error) {
	info, err := os.Stat(contextPath)
	if err != nil {
		return nil, fmt.Errorf("build context not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("build context is not a directory: %s", contextPath)
	}

	excludes, err := excludePatterns(contextPath)
	if err != nil {
		return nil, err
	}
	if len(excludes) > 0 {
		excludes = append(excludes, "!"+filepath.ToSlash(filepath.Clean(dockerfile)), "!.dockerignore")
	}

	buildContext, err := archive.TarWithOptions(contextPath, &archive.TarOptions{
		ExcludePatterns: excludes,
	})
	if err != nil {
		return nil, fmt.Errorf("creating build context: %w", err)
	}
	return buildContext, nil
}

// excludePatterns reads .dockerignore from the context root. A missing file
// means nothing is excluded.
func excludePatterns(contextPath string) ([]string, error) {
	f, err := os.Open(filepath.Join(contextPath, ".dockerignore"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading .dockerignore: %w", err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("parsing .dockerignore: %w", err)
	}
	return patterns, nil
}

// buildArgs converts build args to the pointer map the engine API expects.
func buildArgs(args map[string]string) map[string]*string {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]*string, len(args))
	for k, v := range args {
		val := v
		out[k] = &val
	}
	return out
}

// extraHosts converts a hostname to IP mapping into sorted "host:ip" entries.
func extraHosts(hosts map[string]string) []string {
	if len(hosts) == 0 {
		return nil
	}
	out := make([]string, 0, len(hosts))
	for host, ip := range hosts {
		out = append(out, host+":"+ip)
	}
	sort.Strings(out)
	return out
}

// mergeLabels returns base with extra added for keys base does not set.
func mergeLabels(base, extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range base {
		out[k] = v
	}
	return out
}
