// Package runner drives complete operations against a repository: it turns
// profiles into argument vectors through a command builder, executes them as
// subprocesses, records run history and publishes run events. Builder errors
// abort an operation before anything spawns.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/napalu/restix"
	"github.com/napalu/restix/history"
	"github.com/napalu/restix/notify"
	"github.com/napalu/restix/parse"
	"github.com/napalu/restix/proc"
	"github.com/napalu/restix/profile"
	"github.com/napalu/restix/restic"
	"github.com/napalu/restix/types/queue"
	"go.uber.org/zap"
)

// CommandRunner is the subset of proc.Runner operations need.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, env map[string]string) (string, error)
}

// ConfigureRunnerFunc is used when constructing a Runner.
type ConfigureRunnerFunc func(runner *Runner)

// Runner executes profile operations. History, events and secret resolution
// are optional collaborators; a Runner without them just runs commands.
type Runner struct {
	defs    *restix.CommandDefinition
	exec    CommandRunner
	hist    *history.Store
	bus     *notify.Bus
	resolve profile.SecretResolver
	log     *zap.Logger
}

// NewRunner returns a Runner rendering against defs and spawning through
// exec.
func NewRunner(defs *restix.CommandDefinition, exec CommandRunner, configs ...ConfigureRunnerFunc) *Runner {
	runner := &Runner{defs: defs, exec: exec, log: zap.NewNop()}
	for _, config := range configs {
		config(runner)
	}

	return runner
}

// WithHistory records every run in store.
func WithHistory(store *history.Store) ConfigureRunnerFunc {
	return func(runner *Runner) {
		runner.hist = store
	}
}

// WithBus publishes run lifecycle events on bus.
func WithBus(bus *notify.Bus) ConfigureRunnerFunc {
	return func(runner *Runner) {
		runner.bus = bus
	}
}

// WithSecretResolver resolves "secret:<name>" password sources.
func WithSecretResolver(resolve profile.SecretResolver) ConfigureRunnerFunc {
	return func(runner *Runner) {
		runner.resolve = resolve
	}
}

// WithLogger routes the runner's own logging through logger.
func WithLogger(logger *zap.Logger) ConfigureRunnerFunc {
	return func(runner *Runner) {
		if logger != nil {
			runner.log = logger
		}
	}
}

// BackupResult reports what a backup operation did.
type BackupResult struct {
	// Summary holds the parsed backup numbers, nil when the tool's output
	// carried none.
	Summary *restic.BackupSummary
	// Forgot lists the retention groups when the profile asked for a
	// forget run after the backup.
	Forgot []restic.ForgetGroup
}

// step is one queued subprocess invocation. consume, when set, receives the
// captured stdout after a zero exit and returns the summary numbers to
// record; its errors lose the summary but never fail the step, since the
// command itself already succeeded.
type step struct {
	command string
	argv    []string
	consume func(out string) (*history.Summary, error)
}

// Backup runs the profile's backup and, when a retention policy is
// configured, the forget run after it. The forget step only starts when the
// backup succeeded.
func (r *Runner) Backup(ctx context.Context, p *profile.Profile) (*BackupResult, error) {
	result := &BackupResult{}

	builder := restix.NewCommandBuilder(r.defs)
	if err := builder.Param("json"); err != nil {
		return nil, err
	}
	if err := p.ApplyBackup(builder); err != nil {
		return nil, err
	}
	argv, err := r.finalize(p, builder, nil, p.Sources...)
	if err != nil {
		return nil, err
	}

	steps := queue.New[step]()
	steps.Enqueue(step{command: "backup", argv: argv, consume: func(out string) (*history.Summary, error) {
		summary, err := restic.ParseBackupOutput(out)
		if err != nil || summary == nil {
			return nil, err
		}
		result.Summary = summary

		return &history.Summary{
			FilesNew:       summary.FilesNew,
			FilesChanged:   summary.FilesChanged,
			DataAdded:      summary.DataAdded,
			BytesProcessed: summary.TotalBytesProcessed,
			SnapshotID:     summary.SnapshotID,
		}, nil
	}})

	if p.Retention != nil && !p.Retention.Empty() {
		forgetArgv, err := r.forgetArgv(p)
		if err != nil {
			return nil, err
		}
		steps.Enqueue(step{command: "forget", argv: forgetArgv, consume: func(out string) (*history.Summary, error) {
			groups, err := restic.ParseForgetGroups([]byte(out))
			if err != nil {
				return nil, err
			}
			result.Forgot = groups

			return nil, nil
		}})
	}

	if err := r.execute(ctx, p, steps); err != nil {
		return nil, err
	}

	return result, nil
}

// Forget applies the profile's retention policy.
func (r *Runner) Forget(ctx context.Context, p *profile.Profile) ([]restic.ForgetGroup, error) {
	argv, err := r.forgetArgv(p)
	if err != nil {
		return nil, err
	}

	var groups []restic.ForgetGroup
	steps := queue.New[step]()
	steps.Enqueue(step{command: "forget", argv: argv, consume: func(out string) (*history.Summary, error) {
		parsed, err := restic.ParseForgetGroups([]byte(out))
		if err != nil {
			return nil, err
		}
		groups = parsed

		return nil, nil
	}})

	if err := r.execute(ctx, p, steps); err != nil {
		return nil, err
	}

	return groups, nil
}

// Snapshots lists the repository's snapshots.
func (r *Runner) Snapshots(ctx context.Context, p *profile.Profile) ([]restic.Snapshot, error) {
	builder := restix.NewCommandBuilder(r.defs)
	if err := builder.Param("json"); err != nil {
		return nil, err
	}
	if err := builder.Command("snapshots"); err != nil {
		return nil, err
	}
	argv, err := r.finalize(p, builder, nil)
	if err != nil {
		return nil, err
	}

	var snapshots []restic.Snapshot
	steps := queue.New[step]()
	steps.Enqueue(step{command: "snapshots", argv: argv, consume: func(out string) (*history.Summary, error) {
		parsed, err := restic.ParseSnapshots([]byte(out))
		if err != nil {
			return nil, err
		}
		snapshots = parsed

		return nil, nil
	}})

	if err := r.execute(ctx, p, steps); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// Check verifies the repository.
func (r *Runner) Check(ctx context.Context, p *profile.Profile) error {
	return r.simple(ctx, p, "check")
}

// Init creates the profile's repository.
func (r *Runner) Init(ctx context.Context, p *profile.Profile) error {
	return r.simple(ctx, p, "init")
}

// Restore extracts the given snapshot into target.
func (r *Runner) Restore(ctx context.Context, p *profile.Profile, snapshotID, target string) error {
	builder := restix.NewCommandBuilder(r.defs)
	if err := builder.Command("restore"); err != nil {
		return err
	}
	if err := builder.ParamValue("target", target); err != nil {
		return err
	}
	argv, err := r.finalize(p, builder, map[string]string{"snapshotID": snapshotID})
	if err != nil {
		return err
	}

	steps := queue.New[step]()
	steps.Enqueue(step{command: "restore", argv: argv})

	return r.execute(ctx, p, steps)
}

// simple runs a bare subcommand with no flags beyond the profile extras.
func (r *Runner) simple(ctx context.Context, p *profile.Profile, command string) error {
	builder := restix.NewCommandBuilder(r.defs)
	if err := builder.Command(command); err != nil {
		return err
	}
	argv, err := r.finalize(p, builder, nil)
	if err != nil {
		return err
	}

	steps := queue.New[step]()
	steps.Enqueue(step{command: command, argv: argv})

	return r.execute(ctx, p, steps)
}

// forgetArgv renders the profile's forget invocation.
func (r *Runner) forgetArgv(p *profile.Profile) ([]string, error) {
	builder := restix.NewCommandBuilder(r.defs)
	if err := builder.Param("json"); err != nil {
		return nil, err
	}
	if err := p.ApplyForget(builder); err != nil {
		return nil, err
	}

	return r.finalize(p, builder, nil)
}

// finalize renders the builder and appends the profile's extra tokens, then
// any trailing tokens (e.g. backup source paths).
func (r *Runner) finalize(p *profile.Profile, builder *restix.CommandBuilder, synopsis map[string]string, trailing ...string) ([]string, error) {
	var opts []restix.BuildOption
	if synopsis != nil {
		opts = append(opts, restix.WithSynopsisValues(synopsis))
	}

	argv, err := builder.Build(opts...)
	if err != nil {
		return nil, err
	}
	extra, err := p.ExtraTokens()
	if err != nil {
		return nil, err
	}
	argv = append(argv, extra...)

	return append(argv, trailing...), nil
}

// execute drains the step queue sequentially. The first failing step aborts
// the rest and triggers the profile's on-failure hooks. Only before hooks can
// fail the operation; after and on-failure hook errors are logged.
func (r *Runner) execute(ctx context.Context, p *profile.Profile, steps *queue.Q[step]) error {
	env, err := p.Environment(r.resolve)
	if err != nil {
		return err
	}

	if err := r.runHooks(ctx, p, "before", p.Hooks.Before, env); err != nil {
		return err
	}

	for steps.Len() > 0 {
		st, _ := steps.Dequeue()
		if err := r.runStep(ctx, p, st, env); err != nil {
			if hookErr := r.runHooks(ctx, p, "on-failure", p.Hooks.OnFailure, env); hookErr != nil {
				r.log.Warn("on-failure hook failed", zap.String("profile", p.Name), zap.Error(hookErr))
			}

			return err
		}
	}

	if hookErr := r.runHooks(ctx, p, "after", p.Hooks.After, env); hookErr != nil {
		r.log.Warn("after hook failed", zap.String("profile", p.Name), zap.Error(hookErr))
	}

	return nil
}

// runStep records, publishes and executes one step.
func (r *Runner) runStep(ctx context.Context, p *profile.Profile, st step, env map[string]string) error {
	run := history.NewRun(p.Name, st.command, st.argv)
	r.record(ctx, run)
	r.publish(notify.Event{RunID: run.ID, Profile: p.Name, Command: st.command, Phase: notify.PhaseStarted})
	r.log.Info("running command",
		zap.String("profile", p.Name), zap.String("command", st.command), zap.Strings("argv", st.argv))

	out, err := r.exec.Run(ctx, st.argv, env)
	if err != nil {
		code, stderr := exitDetails(err)
		r.finish(ctx, run.ID, history.StatusFailed, code, stderr, nil)
		r.publish(notify.Event{RunID: run.ID, Profile: p.Name, Command: st.command,
			Phase: notify.PhaseFailed, Error: err.Error()})

		return fmt.Errorf("profile %s: %s: %w", p.Name, st.command, err)
	}

	var summary *history.Summary
	if st.consume != nil {
		summary, err = st.consume(out)
		if err != nil {
			r.log.Warn("cannot parse command output",
				zap.String("profile", p.Name), zap.String("command", st.command), zap.Error(err))
			summary = nil
		}
	}
	r.finish(ctx, run.ID, history.StatusSuccess, 0, "", summary)
	r.publish(notify.Event{RunID: run.ID, Profile: p.Name, Command: st.command, Phase: notify.PhaseFinished})

	return nil
}

// runHooks executes the hook command lines one after another. Hooks share
// the profile's environment so they can reach the same repository.
func (r *Runner) runHooks(ctx context.Context, p *profile.Profile, kind string, hooks []string, env map[string]string) error {
	for _, hook := range hooks {
		argv, err := parse.Split(hook)
		if err != nil {
			return fmt.Errorf("profile %s: %s hook %q: %w", p.Name, kind, hook, err)
		}
		if len(argv) == 0 {
			continue
		}

		r.log.Debug("running hook", zap.String("profile", p.Name), zap.String("kind", kind), zap.Strings("argv", argv))
		if _, err := r.exec.Run(ctx, argv, env); err != nil {
			return fmt.Errorf("profile %s: %s hook %q: %w", p.Name, kind, hook, err)
		}
	}

	return nil
}

func (r *Runner) record(ctx context.Context, run *history.Run) {
	if r.hist == nil {
		return
	}
	if err := r.hist.Record(ctx, run); err != nil {
		r.log.Warn("cannot record run", zap.String("run", run.ID), zap.Error(err))
	}
}

func (r *Runner) finish(ctx context.Context, id, status string, exitCode int, stderr string, summary *history.Summary) {
	if r.hist == nil {
		return
	}
	if err := r.hist.Finish(ctx, id, status, exitCode, stderr, summary); err != nil {
		r.log.Warn("cannot finish run", zap.String("run", id), zap.Error(err))
	}
}

func (r *Runner) publish(event notify.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(event); err != nil {
		r.log.Warn("cannot publish run event", zap.String("run", event.RunID), zap.Error(err))
	}
}

// exitDetails extracts the exit code and diagnostic text to record for a
// failed execution.
func exitDetails(err error) (int, string) {
	var exitErr *proc.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, exitErr.Stderr
	}

	return -1, err.Error()
}
