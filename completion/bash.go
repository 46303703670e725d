package completion

import (
	"fmt"
	"strings"
)

// BashGenerator renders a bash completion function for a flattened command
// tree. Completion words carry their description in brackets and are quoted
// so array assignments survive spaces and parentheses; the bracket part is
// stripped with ${arr[*]%%[*} before the words reach compgen.
type BashGenerator struct{}

func (g *BashGenerator) Generate(programName string, data CompletionData) string {
	var script strings.Builder

	fmt.Fprintf(&script, `#!/bin/bash

function __%[1]s_completion() {
    local cur prev words cword cmd
    _init_completion || return

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"
    cmd=""

    # Find the main command
    for ((i=1; i < COMP_CWORD; i++)); do
        if [[ "${COMP_WORDS[i]}" != -* ]]; then
            cmd="${COMP_WORDS[i]}"
            break
        fi
    done
`, programName)

	g.flagValueCases(&script, data)
	g.subcommandCases(&script, data)
	g.flagWords(&script, data)
	g.commandWords(&script, data)

	fmt.Fprintf(&script, `}

complete -F __%[1]s_completion %[1]s`, programName)

	return script.String()
}

// flagValueCases completes scripted values for the flag the user just typed.
func (g *BashGenerator) flagValueCases(w *strings.Builder, data CompletionData) {
	w.WriteString(`
    # Handle flag values
    case "${prev}" in`)

	for _, flag := range data.Flags {
		values, ok := data.FlagValues[flag]
		if !ok {
			continue
		}
		hints := make([]string, len(values))
		for i, v := range values {
			hints[i] = quotedHint(v.Pattern, v.Description)
		}
		fmt.Fprintf(w, `
        %s)
            local vals=(%s)
            COMPREPLY=( $(compgen -W "${vals[*]%%%%[*}" -- "$cur") )
            return
            ;;`, flag, strings.Join(hints, " "))
	}

	w.WriteString(`
    esac
`)
}

// subcommandCases offers child command names once their parent has been
// typed. Only the immediate next word of each path is offered.
func (g *BashGenerator) subcommandCases(w *strings.Builder, data CompletionData) {
	var parents []string
	children := map[string][]string{}
	seen := map[string]bool{}
	for _, path := range data.Commands {
		parts := strings.Fields(path)
		if len(parts) < 2 || seen[parts[0]+" "+parts[1]] {
			continue
		}
		seen[parts[0]+" "+parts[1]] = true
		if len(children[parts[0]]) == 0 {
			parents = append(parents, parts[0])
		}
		children[parts[0]] = append(children[parts[0]], parts[1])
	}
	if len(parents) == 0 {
		return
	}

	w.WriteString(`
    # Offer child command names under the typed parent
    case "${cmd}" in`)

	for _, parent := range parents {
		fmt.Fprintf(w, `
        %s)
            COMPREPLY+=( $(compgen -W %q -- "$cur") )
            ;;`, parent, strings.Join(children[parent], " "))
	}

	w.WriteString(`
    esac
`)
}

// flagWords completes flag tokens, the global ones plus those of the typed
// command. Multiword command paths cannot match a single COMP_WORD and are
// skipped.
func (g *BashGenerator) flagWords(w *strings.Builder, data CompletionData) {
	w.WriteString(`
    # If we're completing a flag
    if [[ "$cur" == -* ]]; then
        local flags=()

        # Global flags`)

	for _, flag := range data.Flags {
		fmt.Fprintf(w, `
        flags+=(%s)`, quotedHint(flag, data.Descriptions[flag]))
	}

	w.WriteString(`

        # Command-specific flags
        case "${cmd}" in`)

	for _, cmd := range data.Commands {
		flags := data.CommandFlags[cmd]
		if len(flags) == 0 || strings.Contains(cmd, " ") {
			continue
		}
		hints := make([]string, len(flags))
		for i, flag := range flags {
			hints[i] = quotedHint(flag, data.Descriptions[cmd+"@"+flag])
		}
		fmt.Fprintf(w, `
            %s)
                local cmd_flags=(%s)
                flags+=("${cmd_flags[@]}")
                ;;`, cmd, strings.Join(hints, " "))
	}

	w.WriteString(`
        esac

        COMPREPLY=( $(compgen -W "${flags[*]%%[*}" -- "$cur") )
        return
    fi
`)
}

// commandWords completes command names while none has been typed yet.
func (g *BashGenerator) commandWords(w *strings.Builder, data CompletionData) {
	hints := make([]string, len(data.Commands))
	for i, cmd := range data.Commands {
		hints[i] = quotedHint(cmd, data.CommandDescriptions[cmd])
	}

	fmt.Fprintf(w, `
    # Complete commands if no command is present yet
    if [[ -z "$cmd" ]]; then
        local commands=(%s)
        COMPREPLY=( $(compgen -W "${commands[*]%%%%[*}" -- "$cur") )
    fi
`, strings.Join(hints, " "))
}

// quotedHint renders one completion word with its bracketed description.
func quotedHint(word, desc string) string {
	return `"` + word + `[` + escapeBash(desc) + `]"`
}
