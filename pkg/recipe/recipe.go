// Package recipe generates a minimal Dockerfile for build contexts that do
// not provide one.
package recipe

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/logging"
)

const (
	// GeneratedName is the file, relative to the build context, that a
	// generated Dockerfile is written to.
	GeneratedName = ".Dockerfile-generated"

	// Header is always the first line of a generated Dockerfile.
	Header = "#THIS FILE WAS GENERATED BY ELVER, DO NOT CHANGE MANUALLY"
)

// Instruction is one line of a Dockerfile.
type Instruction struct {
	Directive string // FROM, COPY, RUN, ENTRYPOINT, CMD
	Args      string
}

func (i Instruction) String() string {
	return i.Directive + " " + i.Args
}

// Recipe is an ordered list of Dockerfile instructions.
type Recipe []Instruction

// String renders the recipe with the generated-file header first and one
// instruction per line.
func (r Recipe) String() string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, inst := range r {
		b.WriteString(inst.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Render builds the default recipe for contextPath. The dependency install
// step is only emitted when the manifest exists at the context root; a
// missing manifest is not an error.
func Render(contextPath string, opts config.GenerateOptions) Recipe {
	r := Recipe{{Directive: "FROM", Args: opts.BaseImage}}

	if opts.CopyContext {
		r = append(r, Instruction{Directive: "COPY", Args: ". " + opts.CopyDir})

		if !opts.SkipInstall && fileExists(filepath.Join(contextPath, opts.Manifest)) {
			// In-image paths are always slash separated
			manifest := path.Join(opts.CopyDir, opts.Manifest)
			r = append(r, Instruction{
				Directive: "RUN",
				Args:      fmt.Sprintf(`["pip", "install", "-r", %q]`, manifest),
			})
		}
	}

	if opts.EntryPoint != "" {
		r = append(r, Instruction{Directive: "ENTRYPOINT", Args: opts.EntryPoint})
	}
	if opts.Cmd != "" {
		r = append(r, Instruction{Directive: "CMD", Args: opts.Cmd})
	}

	return r
}

// Ensure returns the Dockerfile path, relative to contextPath, that the build
// should use. An existing file at dockerfile always wins and opts are then
// ignored. Otherwise a default recipe is written to GeneratedName inside the
// context, replacing any earlier generation, and GeneratedName is returned.
func Ensure(contextPath, dockerfile string, opts config.GenerateOptions, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	expected := filepath.Join(contextPath, dockerfile)
	if fileExists(expected) {
		return dockerfile, nil
	}

	logger.Info("dockerfile not found, generating a default one", "path", expected)

	r := Render(contextPath, opts)
	generated := filepath.Join(contextPath, GeneratedName)
	if err := os.WriteFile(generated, []byte(r.String()), 0644); err != nil {
		return "", fmt.Errorf("writing generated dockerfile: %w", err)
	}

	logger.Debug("generated dockerfile", "path", generated, "instructions", len(r))
	return GeneratedName, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
