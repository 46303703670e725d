package completion

import (
	"fmt"
	"strings"
)

// ZshGenerator renders a zsh completion function built on _arguments and
// _values. Sections iterate the flattened data in order, so regenerating the
// script for the same tree yields the same bytes.
type ZshGenerator struct{}

func (g *ZshGenerator) Generate(programName string, data CompletionData) string {
	var script strings.Builder

	fmt.Fprintf(&script, `#compdef %[1]s

__%[1]s_completion() {
    local curcontext="$curcontext" state line
    typeset -A opt_args

    _arguments -C \`, programName)

	for _, flag := range data.Flags {
		fmt.Fprintf(&script, "\n        '*%s[%s]' \\", flag, escapeBash(data.Descriptions[flag]))
	}
	for _, flag := range data.Flags {
		values, ok := data.FlagValues[flag]
		if !ok {
			continue
		}
		fmt.Fprintf(&script, "\n        '*%s:value:(%s)' \\", flag, zshValues(values))
	}

	script.WriteString(`
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _values 'commands' \`)

	for _, cmd := range data.Commands {
		fmt.Fprintf(&script, "\n                '%s[%s]' \\",
			strings.ReplaceAll(cmd, " ", `\ `), escapeBash(data.CommandDescriptions[cmd]))
	}

	script.WriteString(`
            ;;
        args)
            case $words[1] in`)

	// $words[1] is a single word, multiword paths can never match it.
	for _, cmd := range data.Commands {
		flags := data.CommandFlags[cmd]
		if len(flags) == 0 || strings.Contains(cmd, " ") {
			continue
		}
		fmt.Fprintf(&script, `
                %s)
                    _arguments \`, cmd)
		for _, flag := range flags {
			fmt.Fprintf(&script, "\n                        '*%s[%s]' \\",
				flag, escapeBash(data.Descriptions[cmd+"@"+flag]))
			if values, ok := data.FlagValues[cmd+"@"+flag]; ok {
				fmt.Fprintf(&script, "':value:(%s)' \\", zshValues(values))
			}
		}
		script.WriteString(`
                    ;;`)
	}

	fmt.Fprintf(&script, `
            esac
            ;;
    esac
}

__%[1]s_completion "$@"`, programName)

	return script.String()
}

// zshValues renders the value:description pairs of a zsh value list.
func zshValues(values []CompletionValue) string {
	rendered := make([]string, 0, len(values))
	for _, v := range values {
		if v.Description == "" {
			rendered = append(rendered, v.Pattern)
			continue
		}
		rendered = append(rendered, v.Pattern+`\:`+escapeBash(strings.ReplaceAll(v.Description, " ", `\ `)))
	}

	return strings.Join(rendered, " ")
}
