// Command restix drives a restic-compatible backup tool through declarative
// profiles: it renders profile settings into argument vectors, runs them,
// records run history and fans run events out to notification hooks.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/napalu/goopt/v2"
	"github.com/napalu/restix/proc"
)

type backupCmd struct {
	Exec goopt.CommandFunc
}

type snapshotsCmd struct {
	Exec goopt.CommandFunc
}

type forgetCmd struct {
	Exec goopt.CommandFunc
}

type checkCmd struct {
	Exec goopt.CommandFunc
}

type restoreCmd struct {
	Target string `goopt:"short:t;desc:Directory to restore into;required:true"`
	Exec   goopt.CommandFunc
}

type initCmd struct {
	Exec goopt.CommandFunc
}

type historyCmd struct {
	Limit int  `goopt:"short:l;desc:Maximum number of runs to show;default:20"`
	All   bool `goopt:"short:a;desc:Show runs for every profile, not just the selected one"`
	Exec  goopt.CommandFunc
}

type completionCmd struct {
	Shell   string `goopt:"short:s;desc:Shell to generate for: bash or zsh;default:bash"`
	Binary  string `goopt:"short:b;desc:Probe this binary's help output instead of using the built-in command tree"`
	Depth   int    `goopt:"short:d;desc:Subcommand depth to probe with --binary;default:2"`
	Install bool   `goopt:"desc:Install the script into the shell's completion directory"`
	Exec    goopt.CommandFunc
}

type secretSetCmd struct {
	Exec goopt.CommandFunc
}

type secretGetCmd struct {
	Exec goopt.CommandFunc
}

type secretDeleteCmd struct {
	Exec goopt.CommandFunc
}

type secretListCmd struct {
	Exec goopt.CommandFunc
}

type secretCmd struct {
	Store  string          `goopt:"desc:Secret store file (overrides the configured path)"`
	Set    secretSetCmd    `goopt:"kind:command;name:set;desc:Store a secret read from the terminal"`
	Get    secretGetCmd    `goopt:"kind:command;name:get;desc:Print a secret"`
	Delete secretDeleteCmd `goopt:"kind:command;name:delete;desc:Remove a secret"`
	List   secretListCmd   `goopt:"kind:command;name:list;desc:List stored secret names"`
}

type consoleCmd struct {
	Exec goopt.CommandFunc
}

type appOptions struct {
	Config  string `goopt:"short:c;desc:Configuration file (overrides discovery)"`
	Profile string `goopt:"short:p;desc:Profile to operate on;default:default"`
	Verbose bool   `goopt:"short:v;desc:Enable debug logging"`
	DryRun  bool   `goopt:"short:n;desc:Print the rendered commands without running them"`
	Help    bool   `goopt:"short:h;desc:Show help"`

	Backup     backupCmd     `goopt:"kind:command;name:backup;desc:Run the profile's backup (and its forget run when retention is configured)"`
	Snapshots  snapshotsCmd  `goopt:"kind:command;name:snapshots;desc:List the repository's snapshots"`
	Forget     forgetCmd     `goopt:"kind:command;name:forget;desc:Apply the profile's retention policy"`
	Check      checkCmd      `goopt:"kind:command;name:check;desc:Verify the repository"`
	Restore    restoreCmd    `goopt:"kind:command;name:restore;desc:Restore a snapshot into a directory"`
	Init       initCmd       `goopt:"kind:command;name:init;desc:Initialize the profile's repository"`
	History    historyCmd    `goopt:"kind:command;name:history;desc:Show recorded runs"`
	Completion completionCmd `goopt:"kind:command;name:completion;desc:Generate a shell completion script for the backup tool"`
	Secret     secretCmd     `goopt:"kind:command;name:secret;desc:Manage the encrypted secret store"`
	Console    consoleCmd    `goopt:"kind:command;name:console;desc:Interactive prompt against the profile's repository"`
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := &appOptions{}
	app := newApp(opts)
	defer app.Close()

	opts.Backup.Exec = app.backup
	opts.Snapshots.Exec = app.snapshots
	opts.Forget.Exec = app.forget
	opts.Check.Exec = app.check
	opts.Restore.Exec = app.restore
	opts.Init.Exec = app.initRepo
	opts.History.Exec = app.history
	opts.Completion.Exec = app.completion
	opts.Secret.Set.Exec = app.secretSet
	opts.Secret.Get.Exec = app.secretGet
	opts.Secret.Delete.Exec = app.secretDelete
	opts.Secret.List.Exec = app.secretList
	opts.Console.Exec = app.console

	parser, err := goopt.NewParserFromStruct(opts,
		goopt.WithFlagNameConverter(goopt.ToKebabCase),
		goopt.WithCommandNameConverter(goopt.ToKebabCase),
		goopt.WithEnvNameConverter(goopt.ToKebabCase))
	if err != nil {
		fmt.Fprintf(os.Stderr, "restix: cannot build command line parser: %v\n", err)
		return 1
	}

	success := parser.Parse(os.Args)

	if opts.Help {
		parser.PrintUsageWithGroups(os.Stdout)
		return 0
	}
	if !success {
		for _, parseErr := range parser.GetErrors() {
			fmt.Fprintf(os.Stderr, "restix: %v\n", parseErr)
		}
		parser.PrintUsageWithGroups(os.Stderr)
		return 1
	}
	if len(parser.GetCommands()) == 0 {
		parser.PrintUsageWithGroups(os.Stdout)
		return 0
	}

	if parser.ExecuteCommands() > 0 {
		// The backup tool's own exit code is worth preserving for scripts
		// and schedulers wrapping this command.
		code := 1
		for _, cmdErr := range parser.GetCommandExecutionErrors() {
			fmt.Fprintf(os.Stderr, "restix: %s: %v\n", cmdErr.Key, cmdErr.Value)
			var exitErr *proc.ExitError
			if errors.As(cmdErr.Value, &exitErr) && exitErr.Code > 0 {
				code = exitErr.Code
			}
		}

		return code
	}

	return 0
}
