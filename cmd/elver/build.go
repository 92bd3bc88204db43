package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/elver/elver/pkg/builder"
	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/dockerclient"
	"github.com/elver/elver/pkg/output"
)

var (
	buildConfigFile string
	buildSummary    bool
	buildDockerHost string
	buildTLSVerify  bool
	buildCertPath   string
)

var dockerBuildCmd = &cobra.Command{
	Use:   "docker-build [path]",
	Short: "Build a Docker image from a directory",
	Long: `Builds a Docker image from a build context directory.

Options come from --config (YAML, or JSON with comments) and from flags;
flags given on the command line win. When the Dockerfile is missing, a
default one is generated into the context as .Dockerfile-generated.

Without --repository the image is tagged with a random repository name,
which is reported so the image can be found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDockerBuild(cmd, args)
	},
}

func init() {
	flags := dockerBuildCmd.Flags()
	flags.StringVarP(&buildConfigFile, "config", "c", "", "Options file (.yaml, .yml, .json, .jsonc, .hujson)")
	flags.BoolVar(&buildSummary, "summary", false, "Print resolved options and the build result as tables")
	flags.StringVarP(&buildDockerHost, "docker-host", "H", "", "Docker engine address (default: DOCKER_HOST)")
	flags.BoolVar(&buildTLSVerify, "tlsverify", false, "Verify the engine's TLS certificate")
	flags.StringVar(&buildCertPath, "tlscert-path", "", "Directory holding ca.pem, cert.pem and key.pem")
	addOptionFlags(flags)

	rootCmd.AddCommand(dockerBuildCmd)
}

// addOptionFlags registers one flag per build option, named like the
// options file keys.
func addOptionFlags(flags *pflag.FlagSet) {
	flags.String("path", "", "Build context directory (default: .)")
	flags.StringP("dockerfile", "f", "", "Dockerfile path relative to the context (default: Dockerfile)")
	flags.StringP("repository", "r", "", "Image repository (default: a random name)")
	flags.StringP("tag", "t", "", "Image tag (default: latest)")
	flags.BoolP("quiet", "q", false, "Suppress the engine's build output")
	flags.Bool("nocache", false, "Do not use the build cache")
	flags.Bool("rm", false, "Remove intermediate containers after a successful build")
	flags.String("timeout", "", "Abort the build after this long (seconds or a duration like 5m)")
	flags.Bool("pull", false, "Always pull newer base images")
	flags.Bool("forcerm", false, "Always remove intermediate containers")
	flags.StringToString("buildargs", nil, "Build-time variable KEY=VALUE (repeatable)")
	flags.String("memory", "", "Memory limit for build containers, e.g. 512m")
	flags.String("memswap", "", "Memory plus swap limit, -1 for unlimited swap")
	flags.Int64("cpushares", 0, "CPU shares (relative weight)")
	flags.String("cpusetcpus", "", "CPUs in which to allow execution, e.g. 0-3")
	flags.String("shmsize", "", "Size of /dev/shm, e.g. 64m")
	flags.StringToString("labels", nil, "Image label KEY=VALUE (repeatable)")
	flags.StringArray("cache-from", nil, "Image to use as a cache source (repeatable)")
	flags.String("target", "", "Build stage to stop at")
	flags.String("network-mode", "", "Network mode for RUN instructions")
	flags.Bool("squash", false, "Squash new layers into one (experimental engines)")
	flags.StringToString("extra-hosts", nil, "Extra host-to-IP mapping HOST=IP (repeatable)")
	flags.String("platform", "", "Target platform os/arch[/variant]")
	flags.Bool("vcs-labels", false, "Label the image with the git revision of the context")

	flags.String("gen-base-image", "", "Base image of a generated Dockerfile (default: python)")
	flags.String("gen-entry-point", "", "ENTRYPOINT of a generated Dockerfile")
	flags.String("gen-cmd", "", "CMD of a generated Dockerfile")
	flags.Bool("gen-skip-copy", false, "Do not copy the context into a generated Dockerfile's image")
	flags.String("gen-copy-dir", "", "Destination of the copied context (default: /code)")
	flags.String("gen-manifest", "", "Requirements file installed with pip (default: requirements.txt)")
	flags.Bool("gen-skip-install", false, "Do not install the requirements file")
}

// applyFlags copies every explicitly set option flag onto opts, leaving
// values from the options file in place for the rest.
func applyFlags(flags *pflag.FlagSet, opts *config.Options) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err == nil {
			err = applyFlag(flags, f.Name, opts)
		}
	})
	return err
}

func applyFlag(flags *pflag.FlagSet, name string, opts *config.Options) error {
	str := func() *string {
		v, _ := flags.GetString(name)
		return &v
	}
	boolean := func() *bool {
		v, _ := flags.GetBool(name)
		return &v
	}
	limits := func() *config.ContainerLimits {
		if opts.ContainerLimits == nil {
			opts.ContainerLimits = &config.ContainerLimits{}
		}
		return opts.ContainerLimits
	}
	size := func() (config.ByteSize, error) {
		v, _ := flags.GetString(name)
		b, err := config.ParseByteSize(v)
		if err != nil {
			return 0, fmt.Errorf("--%s: %w", name, err)
		}
		return b, nil
	}

	switch name {
	case "path":
		opts.Path = str()
	case "dockerfile":
		opts.Dockerfile = str()
	case "repository":
		opts.Repository = str()
	case "tag":
		opts.Tag = str()
	case "quiet":
		opts.Quiet = boolean()
	case "nocache":
		opts.NoCache = boolean()
	case "rm":
		opts.Rm = boolean()
	case "timeout":
		v, _ := flags.GetString(name)
		d, err := config.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		opts.Timeout = &d
	case "pull":
		opts.Pull = boolean()
	case "forcerm":
		opts.ForceRm = boolean()
	case "buildargs":
		opts.BuildArgs, _ = flags.GetStringToString(name)
	case "memory":
		b, err := size()
		if err != nil {
			return err
		}
		limits().Memory = b
	case "memswap":
		b, err := size()
		if err != nil {
			return err
		}
		limits().MemSwap = b
	case "cpushares":
		limits().CPUShares, _ = flags.GetInt64(name)
	case "cpusetcpus":
		limits().CPUSetCPUs = *str()
	case "shmsize":
		b, err := size()
		if err != nil {
			return err
		}
		opts.ShmSize = &b
	case "labels":
		opts.Labels, _ = flags.GetStringToString(name)
	case "cache-from":
		opts.CacheFrom, _ = flags.GetStringArray(name)
	case "target":
		opts.Target = str()
	case "network-mode":
		opts.NetworkMode = str()
	case "squash":
		opts.Squash = boolean()
	case "extra-hosts":
		opts.ExtraHosts, _ = flags.GetStringToString(name)
	case "platform":
		opts.Platform = str()
	case "vcs-labels":
		opts.VCSLabels = boolean()
	case "gen-base-image":
		opts.Generate.BaseImage = str()
	case "gen-entry-point":
		opts.Generate.EntryPoint = str()
	case "gen-cmd":
		opts.Generate.Cmd = str()
	case "gen-skip-copy":
		opts.Generate.SkipCopy = boolean()
	case "gen-copy-dir":
		opts.Generate.CopyDir = str()
	case "gen-manifest":
		opts.Generate.Manifest = str()
	case "gen-skip-install":
		opts.Generate.SkipInstall = boolean()
	}
	return nil
}

// buildOptions merges the options file, explicit flags and the positional
// context path, in increasing precedence.
func buildOptions(flags *pflag.FlagSet, args []string) (config.Options, error) {
	var opts config.Options
	if buildConfigFile != "" {
		loaded, err := config.LoadOptions(buildConfigFile)
		if err != nil {
			return opts, fmt.Errorf("failed to load options: %w", err)
		}
		opts = *loaded
	}

	if err := applyFlags(flags, &opts); err != nil {
		return opts, err
	}

	if len(args) == 1 {
		opts.Path = &args[0]
	}
	return opts, nil
}

func runDockerBuild(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions(cmd.Flags(), args)
	if err != nil {
		return err
	}

	printer := output.New()
	logger, logFile, err := newLogger(printer)
	if err != nil {
		return err
	}
	defer logFile.Close()

	var cfg config.BuildConfig
	if buildSummary {
		cfg = config.Resolve(opts, logger)
		// Pin the repository so the build uses the one just printed
		opts.Repository = &cfg.Repository
		printer.Options(cfg)
	}

	cli, err := dockerclient.New(dockerclient.Options{
		Host:      buildDockerHost,
		CertPath:  buildCertPath,
		TLSVerify: buildTLSVerify,
	})
	if err != nil {
		return err
	}
	defer cli.Close()

	result, err := builder.Run(cmd.Context(), cli, opts, logger)
	if buildSummary {
		printer.Result(buildSummaryRow(cfg, result))
	}
	if err != nil {
		return fmt.Errorf("docker-build failed: %w", err)
	}
	return nil
}

// buildSummaryRow describes a finished build, or a failed one when result
// is nil.
func buildSummaryRow(cfg config.BuildConfig, result *builder.BuildResult) output.BuildSummary {
	if result == nil {
		return output.BuildSummary{
			Reference: cfg.Reference(),
			Recipe:    cfg.Dockerfile,
			State:     "failed",
		}
	}
	return output.BuildSummary{
		Reference: result.Reference,
		ImageID:   result.ImageID,
		Recipe:    result.Recipe,
		Generated: result.Generated,
		State:     "built",
	}
}
