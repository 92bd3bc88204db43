package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/elver/elver/pkg/logging"
	"github.com/elver/elver/pkg/output"
)

var (
	rootDebug     bool
	rootLogFile   string
	rootLogLevel  string
	rootLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "elver",
	Short: "Build steps for container images",
	Long: `Elver runs build steps for container images.

The docker-build step builds an image from a directory on a Docker engine,
generating a default Dockerfile when the directory has none.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Show debug output, including build steps")
	rootCmd.PersistentFlags().StringVar(&rootLogFile, "log-file", "", "Also write structured logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log file level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "json", "Log file format: json or text")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which aborts an in-flight build.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns the logger handed to the build pipeline. Records go to
// the printer and, with --log-file, to a rotated structured log at
// --log-level (--debug lowers both to debug). Secrets are redacted before
// reaching either.
func newLogger(printer *output.Printer) (*slog.Logger, io.Closer, error) {
	printer.SetDebug(rootDebug)

	handlers := []slog.Handler{printer.Handler()}
	var closer io.Closer = nopCloser{}

	if rootLogFile != "" {
		level, err := logging.ParseLevel(rootLogLevel)
		if err != nil {
			return nil, nil, err
		}
		if rootDebug {
			level = slog.LevelDebug
		}
		format, err := logging.ParseFormat(rootLogFormat)
		if err != nil {
			return nil, nil, err
		}

		var file slog.Handler
		file, closer = logging.OpenFile(logging.FileConfig{
			Path:      rootLogFile,
			Level:     level,
			Format:    format,
			Component: "elver",
		})
		handlers = append(handlers, file)
	}

	return slog.New(logging.NewRedactingHandler(logging.NewFanoutHandler(handlers...))), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
