package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/napalu/goopt/v2"
	"github.com/napalu/restix"
	"github.com/napalu/restix/completion"
	"github.com/napalu/restix/helpgen"
	"github.com/napalu/restix/history"
	"github.com/napalu/restix/log"
	"github.com/napalu/restix/notify"
	"github.com/napalu/restix/parse"
	"github.com/napalu/restix/proc"
	"github.com/napalu/restix/profile"
	"github.com/napalu/restix/restic"
	"github.com/napalu/restix/runner"
	"github.com/napalu/restix/secrets"
	"github.com/napalu/restix/util"
	"go.uber.org/zap"
)

// App wires the configuration into the packages doing the work. The
// collaborators are built on first use so commands that can run without a
// configuration file (completion, secret --store) do.
type App struct {
	opts *appOptions
	ctx  context.Context
	stop context.CancelFunc

	cfg    *profile.Config
	logger *zap.Logger
	exec   *proc.Runner
	hist   *history.Store
	bus    *notify.Bus
	store  *secrets.Store
	run    *runner.Runner
}

func newApp(opts *appOptions) *App {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &App{opts: opts, ctx: ctx, stop: stop}
}

// Close flushes and releases everything setup built.
func (a *App) Close() {
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.hist != nil {
		_ = a.hist.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	a.stop()
}

// setup loads the configuration and builds the collaborators every
// repository-touching command shares. It is idempotent.
func (a *App) setup() error {
	if a.cfg != nil {
		return nil
	}

	cfg, path, err := a.loadConfig()
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	if a.opts.Verbose {
		logCfg.Level = "debug"
	}
	logger, err := log.New(logCfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	logger.Debug("configuration loaded", zap.String("path", path))

	a.exec = proc.New(logger.Named("proc"))

	if cfg.History != "" && !a.opts.DryRun {
		hist, err := history.Open(cfg.History)
		if err != nil {
			return fmt.Errorf("cannot open history %s: %w", cfg.History, err)
		}
		a.hist = hist
	}

	if cfg.NotifyCommand != "" && !a.opts.DryRun {
		argv, err := parse.Split(cfg.NotifyCommand)
		if err != nil {
			return fmt.Errorf("notifyCommand: %w", err)
		}
		bus := notify.NewBus(logger.Named("notify"))
		if err := bus.Subscribe(a.ctx, notify.CommandSink(a.exec, argv, logger.Named("notify"))); err != nil {
			return err
		}
		a.bus = bus
	}

	configs := []runner.ConfigureRunnerFunc{
		runner.WithLogger(logger.Named("runner")),
		runner.WithSecretResolver(a.resolver()),
	}
	var exec runner.CommandRunner = a.exec
	if a.opts.DryRun {
		exec = echoRunner{}
	}
	if a.hist != nil {
		configs = append(configs, runner.WithHistory(a.hist))
	}
	if a.bus != nil {
		configs = append(configs, runner.WithBus(a.bus))
	}
	a.run = runner.NewRunner(restic.DefinitionFor(cfg.Binary), exec, configs...)

	return nil
}

func (a *App) loadConfig() (*profile.Config, string, error) {
	if a.opts.Config != "" {
		cfg, err := profile.Load(a.opts.Config)

		return cfg, a.opts.Config, err
	}

	return profile.Discover()
}

// profile resolves the selected profile after setup.
func (a *App) profile() (*profile.Profile, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}

	return a.cfg.Profile(a.opts.Profile)
}

// resolver returns the secret resolver commands use. Under --dry-run secrets
// resolve to nothing so rendering never prompts for a passphrase.
func (a *App) resolver() profile.SecretResolver {
	if a.opts.DryRun {
		return func(string) (string, error) { return "", nil }
	}

	return a.resolveSecret
}

// resolveSecret unlocks the secret store on first use and reads name from it.
func (a *App) resolveSecret(name string) (string, error) {
	store, err := a.secretStore()
	if err != nil {
		return "", err
	}

	return store.Get(name)
}

// secretStore returns the unlocked secret store, prompting for the
// passphrase on first use. The --store flag wins over the configured path;
// the configuration is optional when the flag is given.
func (a *App) secretStore() (*secrets.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	path := a.opts.Secret.Store
	if path == "" {
		cfg := a.cfg
		if cfg == nil {
			if loaded, _, err := a.loadConfig(); err == nil {
				cfg = loaded
			}
		}
		if cfg != nil {
			path = cfg.Secrets
		}
	}
	if path == "" {
		return nil, errors.New("no secret store configured: set secrets: in the configuration or pass --store")
	}

	store, err := secrets.OpenPrompt(path, os.Stderr, util.StdTerminal{})
	if err != nil {
		return nil, err
	}
	a.store = store

	return store, nil
}

// echoRunner prints the vectors instead of spawning them, for --dry-run.
type echoRunner struct{}

func (echoRunner) Run(_ context.Context, argv []string, _ map[string]string) (string, error) {
	fmt.Println(strings.Join(argv, " "))

	return "", nil
}

func (a *App) backup(_ *goopt.Parser, _ *goopt.Command) error {
	p, err := a.profile()
	if err != nil {
		return err
	}

	result, err := a.run.Backup(a.ctx, p)
	if err != nil {
		return err
	}

	if result.Summary != nil {
		s := result.Summary
		fmt.Printf("snapshot %s: %d new files, %d changed, %s added (%d files, %s processed)\n",
			s.SnapshotID, s.FilesNew, s.FilesChanged, util.FormatBytes(s.DataAdded),
			s.TotalFilesProcessed, util.FormatBytes(s.TotalBytesProcessed))
	} else if !a.opts.DryRun {
		fmt.Println("backup finished (the tool reported no summary)")
	}
	for _, group := range result.Forgot {
		fmt.Printf("retention %s: kept %d, removed %d\n",
			groupLabel(group), len(group.Keep), len(group.Remove))
	}

	return nil
}

func (a *App) snapshots(_ *goopt.Parser, _ *goopt.Command) error {
	p, err := a.profile()
	if err != nil {
		return err
	}

	snapshots, err := a.run.Snapshots(a.ctx, p)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		if !a.opts.DryRun {
			fmt.Println("no snapshots")
		}

		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tHOST\tTAGS\tPATHS")
	for _, snap := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			snap.Name(), snap.Time.Format("2006-01-02 15:04:05"), snap.Hostname,
			strings.Join(snap.Tags, ","), strings.Join(snap.Paths, " "))
	}

	return w.Flush()
}

func (a *App) forget(_ *goopt.Parser, _ *goopt.Command) error {
	p, err := a.profile()
	if err != nil {
		return err
	}

	groups, err := a.run.Forget(a.ctx, p)
	if err != nil {
		return err
	}
	for _, group := range groups {
		fmt.Printf("%s: kept %d, removed %d\n", groupLabel(group), len(group.Keep), len(group.Remove))
	}

	return nil
}

func (a *App) check(_ *goopt.Parser, _ *goopt.Command) error {
	p, err := a.profile()
	if err != nil {
		return err
	}
	if err := a.run.Check(a.ctx, p); err != nil {
		return err
	}
	if !a.opts.DryRun {
		fmt.Println("repository is healthy")
	}

	return nil
}

func (a *App) restore(parser *goopt.Parser, _ *goopt.Command) error {
	p, err := a.profile()
	if err != nil {
		return err
	}

	args := positionals(parser)
	if len(args) == 0 {
		return errors.New(`restore needs a snapshot ID ("latest" restores the most recent snapshot)`)
	}

	if err := a.run.Restore(a.ctx, p, args[0], a.opts.Restore.Target); err != nil {
		return err
	}
	if !a.opts.DryRun {
		fmt.Printf("snapshot %s restored to %s\n", args[0], a.opts.Restore.Target)
	}

	return nil
}

func (a *App) initRepo(_ *goopt.Parser, _ *goopt.Command) error {
	p, err := a.profile()
	if err != nil {
		return err
	}
	if err := a.run.Init(a.ctx, p); err != nil {
		return err
	}
	if !a.opts.DryRun {
		fmt.Printf("repository %s initialized\n", p.Repository)
	}

	return nil
}

func (a *App) history(_ *goopt.Parser, _ *goopt.Command) error {
	if err := a.setup(); err != nil {
		return err
	}
	if a.hist == nil {
		return errors.New("history is not configured: set history: in the configuration")
	}

	name := a.opts.Profile
	if a.opts.History.All {
		name = ""
	}
	runs, err := a.hist.List(a.ctx, name, a.opts.History.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")

		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tPROFILE\tCOMMAND\tSTATUS\tDURATION\tDETAILS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.Profile, run.Command,
			run.Status, durationCell(run.Duration()), runDetails(run))
	}

	return w.Flush()
}

func (a *App) completion(_ *goopt.Parser, _ *goopt.Command) error {
	opts := a.opts.Completion
	switch opts.Shell {
	case "bash", "zsh":
	default:
		return fmt.Errorf("unsupported shell: %s", opts.Shell)
	}

	defs, program, err := a.completionTree()
	if err != nil {
		return err
	}
	data := completion.FromDefinition(defs)

	if !opts.Install {
		fmt.Println(completion.GetGenerator(opts.Shell).Generate(program, data))

		return nil
	}

	manager, err := completion.NewCompletionManager(opts.Shell, program)
	if err != nil {
		return err
	}
	manager.Accept(data)
	path, err := manager.SaveCompletion()
	if err != nil {
		return err
	}
	fmt.Printf("%s completion for %s installed at %s\n", opts.Shell, program, path)

	return nil
}

// completionTree picks the command tree to complete: a probed binary when
// --binary is set, otherwise the built-in tree for the configured tool.
func (a *App) completionTree() (*restix.CommandDefinition, string, error) {
	opts := a.opts.Completion
	if opts.Binary != "" {
		gen := helpgen.NewGenerator(proc.New(a.looseLogger()),
			helpgen.WithMaxDepth(opts.Depth),
			helpgen.WithGeneratorLogger(a.looseLogger()))
		defs, err := gen.Generate(a.ctx, opts.Binary)
		if err != nil {
			return nil, "", err
		}

		return defs, filepath.Base(opts.Binary), nil
	}

	binary := "restic"
	if cfg, _, err := a.loadConfig(); err == nil {
		binary = cfg.Binary
	}

	return restic.DefinitionFor(binary), filepath.Base(binary), nil
}

// looseLogger builds a terminal-only logger for commands that run without a
// configuration file.
func (a *App) looseLogger() *zap.Logger {
	if a.logger != nil {
		return a.logger
	}

	level := "warn"
	if a.opts.Verbose {
		level = "debug"
	}
	logger, err := log.New(log.Config{Level: level})
	if err != nil {
		return zap.NewNop()
	}
	a.logger = logger

	return logger
}

func (a *App) secretSet(parser *goopt.Parser, _ *goopt.Command) error {
	args := positionals(parser)
	if len(args) == 0 {
		return errors.New("secret set needs a name")
	}

	store, err := a.secretStore()
	if err != nil {
		return err
	}
	value, err := util.GetSecureString(fmt.Sprintf("value for %s: ", args[0]), os.Stderr, util.StdTerminal{})
	if err != nil {
		return err
	}
	if err := store.Set(args[0], value); err != nil {
		return err
	}
	fmt.Printf("secret %s stored in %s\n", args[0], store.Path())

	return nil
}

func (a *App) secretGet(parser *goopt.Parser, _ *goopt.Command) error {
	args := positionals(parser)
	if len(args) == 0 {
		return errors.New("secret get needs a name")
	}

	store, err := a.secretStore()
	if err != nil {
		return err
	}
	value, err := store.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)

	return nil
}

func (a *App) secretDelete(parser *goopt.Parser, _ *goopt.Command) error {
	args := positionals(parser)
	if len(args) == 0 {
		return errors.New("secret delete needs a name")
	}

	store, err := a.secretStore()
	if err != nil {
		return err
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("secret %s removed\n", args[0])

	return nil
}

func (a *App) secretList(_ *goopt.Parser, _ *goopt.Command) error {
	store, err := a.secretStore()
	if err != nil {
		return err
	}
	for _, name := range store.List() {
		fmt.Println(name)
	}

	return nil
}

// positionals collects the command line tokens that were neither flags, flag
// values nor command names.
func positionals(parser *goopt.Parser) []string {
	args := parser.GetPositionalArgs()
	values := make([]string, 0, len(args))
	for _, arg := range args {
		values = append(values, arg.Value)
	}

	return values
}

// groupLabel names a forget group the way the tool groups snapshots: by host
// and paths.
func groupLabel(group restic.ForgetGroup) string {
	parts := make([]string, 0, 1+len(group.Paths))
	if group.Host != "" {
		parts = append(parts, group.Host)
	}
	parts = append(parts, group.Paths...)
	if len(parts) == 0 {
		return "all snapshots"
	}

	return strings.Join(parts, " ")
}

// runDetails summarizes what a run did, or why it failed.
func runDetails(run *history.Run) string {
	switch run.Status {
	case history.StatusFailed:
		detail := fmt.Sprintf("exit %d", run.ExitCode)
		if run.Stderr != "" {
			detail += ": " + firstLine(run.Stderr)
		}

		return detail
	case history.StatusRunning:
		return ""
	}
	if run.Summary.SnapshotID != "" {
		return fmt.Sprintf("snapshot %s, %s added",
			run.Summary.SnapshotID, util.FormatBytes(run.Summary.DataAdded))
	}

	return ""
}

// durationCell renders a run's elapsed time for the history table, "-" while
// the run has not finished.
func durationCell(d time.Duration) string {
	if d == 0 {
		return "-"
	}

	return util.FormatDuration(d)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}
