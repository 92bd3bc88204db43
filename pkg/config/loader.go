package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// LoadOptions reads docker-build options from a file. YAML files (.yaml,
// .yml) and JSON files with comments and trailing commas (.json, .jsonc,
// .hujson) are supported.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}

	opts, err := ParseOptions(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	// A relative build context is relative to the options file
	resolveRelativePath(opts, filepath.Dir(path))

	return opts, nil
}

// ParseOptions decodes options from data. ext selects the format and
// includes the leading dot.
func ParseOptions(data []byte, ext string) (*Options, error) {
	var opts Options

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("parsing options YAML: %w", err)
		}
	case ".json", ".jsonc", ".hujson":
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parsing options JSON: %w", err)
		}
		if err := json.Unmarshal(std, &opts); err != nil {
			return nil, fmt.Errorf("parsing options JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported options file extension %q", ext)
	}

	return &opts, nil
}

func resolveRelativePath(opts *Options, basePath string) {
	if opts.Path == nil || filepath.IsAbs(*opts.Path) {
		return
	}
	p := filepath.Join(basePath, *opts.Path)
	opts.Path = &p
}
