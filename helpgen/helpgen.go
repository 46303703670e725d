// Package helpgen derives a command definition tree from a tool's help
// output, so vectors can be rendered for binaries nobody described by hand.
// Help text is written for humans and tools disagree on its shape, so the
// result is best effort: lines that do not parse are skipped, and a
// subcommand whose own help cannot be read keeps just its name and the
// description scraped from the parent.
package helpgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/napalu/restix"
	"go.uber.org/zap"
)

// Help line shapes. A flag line is indented, starts with a dash and separates
// the flag spec from its description with two or more spaces or a tab; a
// subcommand line is a lowercase word under a commands header.
var (
	flagLine    = regexp.MustCompile(`^(\s{1,12}-[^\t]+?)(?:\s{2,}|\t)(.+)$`)
	longFlag    = regexp.MustCompile(`--(?:\[no-\])?([a-zA-Z0-9][a-zA-Z0-9\-]*)`)
	shortFlag   = regexp.MustCompile(`(?:^|[,\s])-([a-zA-Z0-9])(?:[,\s]|$)`)
	commandLine = regexp.MustCompile(`^\s{2,4}([a-z][a-zA-Z0-9_\-]+)\s{2,}(.+)$`)
)

// HelpSource runs a probe vector and returns its interleaved output,
// regardless of how the tool exited. proc.Runner.Combined satisfies this.
type HelpSource interface {
	Combined(ctx context.Context, argv []string, env map[string]string) (string, error)
}

// ConfigureGeneratorFunc is used when constructing a Generator.
type ConfigureGeneratorFunc func(generator *Generator)

// Generator probes a binary's help output and builds a definition tree from
// it, descending into discovered subcommands up to a depth limit.
type Generator struct {
	source   HelpSource
	style    restix.ParameterStyle
	maxDepth int
	timeout  time.Duration
	log      *zap.Logger
}

// NewGenerator returns a Generator reading help output through source.
func NewGenerator(source HelpSource, configs ...ConfigureGeneratorFunc) *Generator {
	generator := &Generator{
		source:   source,
		style:    restix.Separate,
		maxDepth: 2,
		timeout:  5 * time.Second,
		log:      zap.NewNop(),
	}
	for _, config := range configs {
		config(generator)
	}

	return generator
}

// WithValueStyle sets the rendering style assigned to flags that take a
// value. It also becomes the generated definitions' default style.
func WithValueStyle(style restix.ParameterStyle) ConfigureGeneratorFunc {
	return func(generator *Generator) {
		generator.style = style
	}
}

// WithMaxDepth caps how many subcommand levels are probed below the root.
func WithMaxDepth(depth int) ConfigureGeneratorFunc {
	return func(generator *Generator) {
		generator.maxDepth = depth
	}
}

// WithProbeTimeout bounds each individual help invocation.
func WithProbeTimeout(timeout time.Duration) ConfigureGeneratorFunc {
	return func(generator *Generator) {
		generator.timeout = timeout
	}
}

// WithGeneratorLogger routes the generator's own logging through logger.
func WithGeneratorLogger(logger *zap.Logger) ConfigureGeneratorFunc {
	return func(generator *Generator) {
		if logger != nil {
			generator.log = logger
		}
	}
}

// Generate builds a definition tree rooted at binary.
func (g *Generator) Generate(ctx context.Context, binary string) (*restix.CommandDefinition, error) {
	return g.generate(ctx, []string{binary}, 0)
}

func (g *Generator) generate(ctx context.Context, path []string, depth int) (*restix.CommandDefinition, error) {
	out, err := g.help(ctx, path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(out, "\n")

	definition := restix.NewDefinition(path[len(path)-1], restix.WithDefaultStyle(g.style))
	definition.Set(restix.WithParameters(g.flags(definition.DefaultStyle, lines)...))

	if depth >= g.maxDepth {
		return definition, nil
	}
	for _, entry := range subcommands(lines) {
		sub, err := g.generate(ctx, append(path, entry.name), depth+1)
		if err != nil {
			g.log.Debug("keeping bare subcommand", zap.Strings("path", path),
				zap.String("subcommand", entry.name), zap.Error(err))
			sub = restix.NewDefinition(entry.name, restix.WithDefaultStyle(g.style))
		}
		if sub.Description == "" {
			sub.Description = entry.desc
		}
		definition.Set(restix.WithSubcommand(sub))
	}

	return definition, nil
}

// help probes "--help" then "-h" and returns the first non-empty output.
// Pagers are disabled so tools that page their help do not block.
func (g *Generator) help(ctx context.Context, path []string) (string, error) {
	env := map[string]string{
		"PAGER":    "cat",
		"MANPAGER": "cat",
		"TERM":     "dumb",
	}

	for _, probe := range []string{"--help", "-h"} {
		probeCtx, cancel := context.WithTimeout(ctx, g.timeout)
		out, _ := g.source.Combined(probeCtx, append(append([]string{}, path...), probe), env)
		cancel()

		if strings.TrimSpace(out) != "" {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("no help output for %q", strings.Join(path, " "))
}

// flags extracts parameter descriptors from help lines. Flags that name a
// value placeholder after their last flag token render in the definition's
// default style with a required value; bare switches render as DoubleDash.
func (g *Generator) flags(style restix.ParameterStyle, lines []string) []*restix.CommandParameter {
	var parameters []*restix.CommandParameter
	seen := map[string]bool{}

	for _, line := range lines {
		m := flagLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		spec, desc := m[1], strings.TrimSpace(m[2])

		longs := longFlag.FindAllStringSubmatch(spec, -1)
		shorts := shortFlag.FindAllStringSubmatch(spec, -1)
		if len(longs) == 0 && len(shorts) == 0 {
			continue
		}

		name, short := "", ""
		if len(longs) > 0 {
			name = longs[0][1]
		}
		if len(shorts) > 0 {
			short = shorts[0][1]
		}
		if name == "" {
			// Short-only flags use the short name with a single dash.
			name = short
			short = ""
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		configs := []restix.ConfigureParameterFunc{restix.WithDescription(desc)}
		if takesValue(spec) {
			configs = append(configs,
				restix.WithStyle(style), restix.SetValueRequired(true))
		} else {
			configs = append(configs, restix.WithStyle(restix.DoubleDash))
		}
		if len(longs) == 0 {
			configs = append(configs, restix.WithStyle(restix.SingleDash))
		} else if short != "" {
			configs = append(configs, restix.WithShortForm(short, restix.SingleDash))
		}

		parameters = append(parameters, restix.NewParameter(name, configs...))
	}

	return parameters
}

// takesValue reports whether the flag spec carries a value placeholder: any
// text left after the last flag token ("--exclude pattern", "--size <n>").
func takesValue(spec string) bool {
	end := 0
	for _, m := range longFlag.FindAllStringIndex(spec, -1) {
		if m[1] > end {
			end = m[1]
		}
	}
	for _, m := range shortFlag.FindAllStringIndex(spec, -1) {
		if m[1] > end {
			end = m[1]
		}
	}

	return strings.Trim(spec[end:], " ,\t=[]") != ""
}

type subEntry struct {
	name string
	desc string
}

// subcommands scrapes the entries of commands sections. Only lines under a
// recognized header count, which keeps example and environment sections from
// contributing phantom subcommands.
func subcommands(lines []string) []subEntry {
	var entries []subEntry
	seen := map[string]bool{}
	inSection := false

	for _, line := range lines {
		header := strings.ToLower(strings.TrimSpace(line))
		if isCommandsHeader(header) {
			inSection = true
			continue
		}
		if inSection && line != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			inSection = false
		}
		if !inSection {
			continue
		}

		m := commandLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if reserved(name) || seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, subEntry{name: name, desc: strings.TrimSpace(m[2])})
	}

	return entries
}

func isCommandsHeader(line string) bool {
	return line == "commands:" ||
		line == "subcommands:" ||
		line == "available commands:" ||
		strings.HasPrefix(line, "command")
}

// reserved names meta commands that only make sense interactively; probing
// their help recurses into usage screens without ever reaching a leaf.
func reserved(name string) bool {
	switch name {
	case "help", "completion":
		return true
	}

	return false
}
