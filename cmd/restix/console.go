package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/napalu/goopt/v2"
	"github.com/napalu/restix"
	"github.com/napalu/restix/completion"
	"github.com/napalu/restix/parse"
	"github.com/napalu/restix/restic"
	"github.com/peterh/liner"
)

// console runs an interactive shell that renders each input line through the
// command builder and spawns the result against the selected profile.
func (a *App) console(_ *goopt.Parser, _ *goopt.Command) error {
	p, err := a.profile()
	if err != nil {
		return err
	}
	env, err := p.Environment(a.resolver())
	if err != nil {
		return err
	}
	defs := restic.DefinitionFor(a.cfg.Binary)
	data := completion.FromDefinition(defs)

	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)
	rl.SetCompleter(func(input string) []string {
		return completeLine(data, input)
	})

	histPath := ""
	if isatty.IsTerminal(os.Stdin.Fd()) {
		histPath = dotfilePath("RESTIX_HISTFILE", ".restix_history")
	}
	if histPath == "/dev/null" {
		histPath = ""
	}
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = rl.ReadHistory(f)
			_ = f.Close()
		}
	}

	fmt.Printf("%s console, profile %q on %s\n", filepath.Base(a.cfg.Binary), p.Name, p.Repository)
	fmt.Println(`Type a command line ("backup --tag nightly"), "help", or "exit".`)

	for {
		input, err := rl.Prompt(p.Name + "> ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		rl.AppendHistory(input)

		switch input {
		case "exit", "quit":
			saveConsoleHistory(rl, histPath)

			return nil
		case "help":
			defs.PrintUsage(os.Stdout)

			continue
		}

		argv, err := renderLine(defs, input)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)

			continue
		}
		if a.opts.DryRun {
			fmt.Println(strings.Join(argv, " "))

			continue
		}

		out, err := a.exec.Run(a.ctx, argv, env)
		if out = strings.TrimRight(out, "\n"); out != "" {
			fmt.Println(out)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	saveConsoleHistory(rl, histPath)

	return nil
}

// renderLine turns one console input line into an argv vector. Leading bare
// words descend the subcommand tree, flag tokens bind parameters looked up
// on the cursor and the root, remaining bare words fill the cursor's synopsis
// slots in order and spill into trailing tokens. A lone "--" stops both flag
// and command interpretation, as it does in a shell.
func renderLine(defs *restix.CommandDefinition, input string) ([]string, error) {
	tokens, err := parse.Split(input)
	if err != nil {
		return nil, err
	}

	builder := restix.NewCommandBuilder(defs)
	synopsis := make(map[string]string)
	var trailing []string
	commands, literal := true, false

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		if literal {
			trailing = append(trailing, token)

			continue
		}
		if token == "--" {
			commands, literal = false, true
			trailing = append(trailing, token)

			continue
		}

		if name, ok := flagName(token); ok {
			commands = false
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				if err := builder.ParamValue(name[:eq], name[eq+1:]); err != nil {
					return nil, err
				}

				continue
			}
			param, err := descriptor(builder, name)
			if err != nil {
				return nil, err
			}
			if param.ValueRequired && i+1 < len(tokens) {
				i++
				if err := builder.ParamValue(param.Name, tokens[i]); err != nil {
					return nil, err
				}

				continue
			}
			if err := builder.Param(param.Name); err != nil {
				return nil, err
			}

			continue
		}

		if commands {
			if err := builder.Command(token); err == nil {
				continue
			}
			commands = false
		}
		if key, ok := nextSynopsisKey(builder, synopsis); ok {
			synopsis[key] = token

			continue
		}
		trailing = append(trailing, token)
	}

	argv, err := builder.Build(restix.WithSynopsisValues(synopsis))
	if err != nil {
		return nil, err
	}

	return append(argv, trailing...), nil
}

// flagName strips the flag prefix from a token. A bare "-" or "--" is not a
// flag.
func flagName(token string) (string, bool) {
	if strings.HasPrefix(token, "--") {
		return token[2:], len(token) > 2
	}
	if strings.HasPrefix(token, "-") && len(token) > 1 {
		return token[1:], true
	}

	return "", false
}

// descriptor resolves a flag name against the cursor and then the root, by
// long name first and short alias second, mirroring the builder's own lookup.
func descriptor(builder *restix.CommandBuilder, name string) (*restix.CommandParameter, error) {
	scopes := []*restix.CommandDefinition{builder.Cursor(), builder.Root()}
	for _, def := range scopes {
		if param, ok := def.Parameters.Get(name); ok {
			return param, nil
		}
	}
	for _, def := range scopes {
		for kv := def.Parameters.Front(); kv != nil; kv = kv.Next() {
			if kv.Value.ShortName == name {
				return kv.Value, nil
			}
		}
	}

	return nil, fmt.Errorf(restix.FmtErrorWithString, restix.ErrUnknownParameter, name)
}

// nextSynopsisKey returns the first of the cursor's synopsis slots without a
// value yet.
func nextSynopsisKey(builder *restix.CommandBuilder, filled map[string]string) (string, bool) {
	for _, param := range builder.Cursor().Synopsis() {
		if _, ok := filled[param.Key]; !ok {
			return param.Key, true
		}
	}

	return "", false
}

// completeLine proposes full-line completions for the word being typed:
// subcommands reachable from the commands already on the line, the tool's
// flags, and the console's own verbs on an empty line.
func completeLine(data completion.CompletionData, line string) []string {
	head, prefix := "", line
	if i := strings.LastIndexByte(line, ' '); i >= 0 {
		head, prefix = line[:i+1], line[i+1:]
	}

	path := ""
	matching := true
	for _, field := range strings.Fields(head) {
		if strings.HasPrefix(field, "-") {
			matching = false

			continue
		}
		next := field
		if path != "" {
			next = path + " " + field
		}
		if matching && containsWord(data.Commands, next) {
			path = next

			continue
		}
		matching = false
	}

	var words []string
	if matching {
		if head == "" {
			words = append(words, "help", "exit")
		}
		for _, command := range data.Commands {
			if rest, ok := childWord(path, command); ok {
				words = append(words, rest)
			}
		}
	}
	words = append(words, data.Flags...)
	if path != "" {
		words = append(words, data.CommandFlags[path]...)
	}

	var out []string
	for _, word := range words {
		if strings.HasPrefix(word, prefix) {
			out = append(out, head+word)
		}
	}

	return out
}

// childWord reports the next word of command when command extends path by
// exactly one level.
func childWord(path, command string) (string, bool) {
	rest := command
	if path != "" {
		if !strings.HasPrefix(command, path+" ") {
			return "", false
		}
		rest = command[len(path)+1:]
	}
	if rest == "" || strings.ContainsRune(rest, ' ') {
		return "", false
	}

	return rest, true
}

func containsWord(words []string, word string) bool {
	for _, candidate := range words {
		if candidate == word {
			return true
		}
	}

	return false
}

// dotfilePath resolves the console history location: the environment override
// when set, otherwise filename in the user's home directory.
func dotfilePath(envVar, filename string) string {
	if path := os.Getenv(envVar); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, filename)
}

func saveConsoleHistory(rl *liner.State, path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = rl.WriteHistory(f)
}
