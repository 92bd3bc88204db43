package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// Options is the raw set of docker-build options as supplied by the caller.
// Every field may be absent; pointer fields distinguish "not set" from the
// zero value.
type Options struct {
	Path       *string `yaml:"path,omitempty" json:"path,omitempty"`             // Build context directory
	Dockerfile *string `yaml:"dockerfile,omitempty" json:"dockerfile,omitempty"` // Recipe path within the context
	Repository *string `yaml:"repository,omitempty" json:"repository,omitempty"`
	Tag        *string `yaml:"tag,omitempty" json:"tag,omitempty"`

	Quiet   *bool     `yaml:"quiet,omitempty" json:"quiet,omitempty"`
	NoCache *bool     `yaml:"nocache,omitempty" json:"nocache,omitempty"`
	Rm      *bool     `yaml:"rm,omitempty" json:"rm,omitempty"`
	Timeout *Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Pull    *bool     `yaml:"pull,omitempty" json:"pull,omitempty"`
	ForceRm *bool     `yaml:"forcerm,omitempty" json:"forcerm,omitempty"`

	BuildArgs       map[string]string `yaml:"buildargs,omitempty" json:"buildargs,omitempty"`
	ContainerLimits *ContainerLimits  `yaml:"container-limits,omitempty" json:"container-limits,omitempty"`
	ShmSize         *ByteSize         `yaml:"shmsize,omitempty" json:"shmsize,omitempty"`
	Labels          map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	CacheFrom       []string          `yaml:"cache-from,omitempty" json:"cache-from,omitempty"`
	Target          *string           `yaml:"target,omitempty" json:"target,omitempty"`
	NetworkMode     *string           `yaml:"network-mode,omitempty" json:"network-mode,omitempty"`
	Squash          *bool             `yaml:"squash,omitempty" json:"squash,omitempty"`
	ExtraHosts      map[string]string `yaml:"extra-hosts,omitempty" json:"extra-hosts,omitempty"` // hostname -> IP
	Platform        *string           `yaml:"platform,omitempty" json:"platform,omitempty"`       // os/arch[/variant]
	VCSLabels       *bool             `yaml:"vcs-labels,omitempty" json:"vcs-labels,omitempty"`

	Generate GenerateFlags `yaml:",inline" json:"-"`
}

// GenerateFlags holds the raw options for the generated Dockerfile. They only
// matter when no Dockerfile exists at the configured path.
type GenerateFlags struct {
	BaseImage   *string `yaml:"gen-base-image,omitempty" json:"gen-base-image,omitempty"`
	EntryPoint  *string `yaml:"gen-entry-point,omitempty" json:"gen-entry-point,omitempty"`
	Cmd         *string `yaml:"gen-cmd,omitempty" json:"gen-cmd,omitempty"`
	SkipCopy    *bool   `yaml:"gen-skip-copy,omitempty" json:"gen-skip-copy,omitempty"`
	CopyDir     *string `yaml:"gen-copy-dir,omitempty" json:"gen-copy-dir,omitempty"`
	Manifest    *string `yaml:"gen-manifest,omitempty" json:"gen-manifest,omitempty"`
	SkipInstall *bool   `yaml:"gen-skip-install,omitempty" json:"gen-skip-install,omitempty"`
}

// UnmarshalJSON flattens the gen-* keys into Generate, mirroring the inline
// YAML layout.
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &p.Generate); err != nil {
		return err
	}
	*o = Options(p)
	return nil
}

// ContainerLimits are the resource limits applied to every container the
// build creates.
type ContainerLimits struct {
	Memory     ByteSize `yaml:"memory,omitempty" json:"memory,omitempty"`
	MemSwap    ByteSize `yaml:"memswap,omitempty" json:"memswap,omitempty"` // memory + swap, -1 disables swap
	CPUShares  int64    `yaml:"cpushares,omitempty" json:"cpushares,omitempty"`
	CPUSetCPUs string   `yaml:"cpusetcpus,omitempty" json:"cpusetcpus,omitempty"` // e.g. "0-3", "0,1"
}

// ByteSize is a size in bytes. It decodes from an integer or a human
// readable string such as "512m" or "1g".
type ByteSize int64

// ParseByteSize parses an integer byte count or a human readable size.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ByteSize(n), nil
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseByteSize(node.Value)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	v, err := ParseByteSize(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Duration is a time.Duration that decodes from a Go duration string
// ("90s", "5m") or from an integer number of seconds.
type Duration time.Duration

// ParseDuration parses a Go duration string or an integer number of seconds.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Duration(time.Duration(n) * time.Second), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return Duration(d), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	v, err := ParseDuration(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// BuildConfig is the resolved configuration for one image build. It is
// produced once by Resolve and not modified afterwards.
type BuildConfig struct {
	Path       string
	Dockerfile string
	Repository string
	Tag        string

	Quiet   bool
	NoCache bool
	Rm      bool
	Timeout time.Duration
	Pull    bool
	ForceRm bool

	BuildArgs       map[string]string
	ContainerLimits ContainerLimits
	ShmSize         int64
	Labels          map[string]string
	CacheFrom       []string
	Target          string
	NetworkMode     string
	Squash          bool
	ExtraHosts      map[string]string
	Platform        string
	VCSLabels       bool

	Generate GenerateOptions
}

// Reference returns the "repository:tag" image reference.
func (c BuildConfig) Reference() string {
	return c.Repository + ":" + c.Tag
}

// GenerateOptions controls the content of a generated Dockerfile.
type GenerateOptions struct {
	BaseImage   string
	EntryPoint  string
	Cmd         string
	CopyContext bool
	CopyDir     string // Only used when CopyContext is set
	Manifest    string // Only used when CopyContext is set
	SkipInstall bool   // Only used when CopyContext is set
}
