package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/logging"
)

// BuildSummary contains data for the build result table.
type BuildSummary struct {
	Reference string
	ImageID   string
	Recipe    string
	Generated bool
	State     string // built, failed
}

// Options prints the resolved build options. Unset options are omitted and
// secret build args are masked.
func (p *Printer) Options(cfg config.BuildConfig) {
	p.Section("OPTIONS")

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"Option", "Value"})
	for _, row := range optionRows(cfg) {
		t.AppendRow(table.Row{row[0], row[1]})
	}

	t.Render()
	p.Println()
}

// optionRows flattens cfg into option/value pairs in a stable order.
func optionRows(cfg config.BuildConfig) [][2]string {
	rows := [][2]string{
		{"path", cfg.Path},
		{"dockerfile", cfg.Dockerfile},
		{"repository", cfg.Repository},
		{"tag", cfg.Tag},
	}
	add := func(key, value string) {
		if value != "" {
			rows = append(rows, [2]string{key, value})
		}
	}
	flag := func(key string, v bool) {
		if v {
			add(key, "true")
		}
	}

	flag("quiet", cfg.Quiet)
	flag("nocache", cfg.NoCache)
	flag("rm", cfg.Rm)
	flag("pull", cfg.Pull)
	flag("forcerm", cfg.ForceRm)
	flag("squash", cfg.Squash)
	flag("vcs-labels", cfg.VCSLabels)
	if cfg.Timeout > 0 {
		add("timeout", cfg.Timeout.String())
	}
	add("buildargs", formatMap(logging.RedactMap(cfg.BuildArgs)))
	if cfg.ContainerLimits.Memory != 0 {
		add("memory", formatSize(int64(cfg.ContainerLimits.Memory)))
	}
	if cfg.ContainerLimits.MemSwap != 0 {
		add("memswap", formatSize(int64(cfg.ContainerLimits.MemSwap)))
	}
	if cfg.ContainerLimits.CPUShares != 0 {
		add("cpushares", fmt.Sprint(cfg.ContainerLimits.CPUShares))
	}
	add("cpusetcpus", cfg.ContainerLimits.CPUSetCPUs)
	if cfg.ShmSize != 0 {
		add("shmsize", formatSize(cfg.ShmSize))
	}
	add("labels", formatMap(cfg.Labels))
	add("cache-from", strings.Join(cfg.CacheFrom, ", "))
	add("target", cfg.Target)
	add("network-mode", cfg.NetworkMode)
	add("extra-hosts", formatMap(cfg.ExtraHosts))
	add("platform", cfg.Platform)

	return rows
}

func formatSize(n int64) string {
	if n < 0 {
		return "unlimited"
	}
	return units.BytesSize(float64(n))
}

func formatMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + m[k]
	}
	return strings.Join(pairs, ", ")
}

// Result prints the build result table.
func (p *Printer) Result(s BuildSummary) {
	p.Section("IMAGE")

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"Reference", "ID", "Dockerfile", "State"})

	recipe := s.Recipe
	if s.Generated {
		recipe += " (generated)"
	}
	state := s.State
	if p.isTTY {
		state = colorState(s.State)
	}
	t.AppendRow(table.Row{s.Reference, shortID(s.ImageID), recipe, state})

	t.Render()
	p.Println()
}

// shortID trims a "sha256:" image ID to the 12 characters docker shows.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// colorState applies color to state based on status.
func colorState(state string) string {
	var style lipgloss.Style
	switch state {
	case "built":
		style = lipgloss.NewStyle().Foreground(ColorGreen)
	case "failed":
		style = lipgloss.NewStyle().Foreground(ColorRed)
	default:
		style = lipgloss.NewStyle().Foreground(ColorGray)
	}
	return style.Render(state)
}

// tableStyle returns the standard table style.
func (p *Printer) tableStyle() table.Style {
	style := table.StyleRounded
	if p.isTTY {
		style.Color.Header = text.Colors{text.FgHiCyan, text.Bold}
		style.Color.Border = text.Colors{text.FgHiBlack}
	}
	style.Options.SeparateRows = false
	return style
}

// Section prints a section header.
func (p *Printer) Section(title string) {
	if p.isTTY {
		style := lipgloss.NewStyle().Foreground(ColorTeal).Bold(true)
		p.Println(style.Render(title))
	} else {
		p.Println(title)
	}
}
