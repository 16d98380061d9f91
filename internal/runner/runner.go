// Package runner executes one build tool invocation per call, forwards its
// output to a logger, and reports how it ended.
package runner

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gmahomarf/msbuild-runner/internal/command"
	"github.com/gmahomarf/msbuild-runner/internal/config"
)

// CommandBuilder turns options into the command to spawn.
// Implemented by command.Builder.
type CommandBuilder interface {
	Construct(opts *config.Options) (command.Command, error)
}

// Observer is notified of every outcome before the caller is.
// It must not block.
type Observer interface {
	Observe(*Outcome)
}

// Runner spawns the build tool and reports the result.
// A Runner holds no per-run state and may be used concurrently.
type Runner struct {
	builder   CommandBuilder
	spawner   Spawner
	log       logrus.FieldLogger
	observers []Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver registers an observer for every outcome.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, o)
	}
}

// New returns a Runner using the given collaborators.
func New(builder CommandBuilder, spawner Spawner, log logrus.FieldLogger, opts ...Option) *Runner {
	r := &Runner{builder: builder, spawner: spawner, log: log}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start builds the command for cfg merged with overrides and spawns it in
// the background. onComplete is called exactly once when the process ends,
// with nil on success or when failures are not surfaced (see
// Options.ErrorOnFail). An error building the command is returned directly
// and onComplete is not called.
func (r *Runner) Start(ctx context.Context, cfg *config.Options, onComplete func(error), overrides ...config.Override) error {
	opts, cmd, err := r.prepare(cfg, overrides)
	if err != nil {
		return err
	}
	go func() {
		out := r.execute(ctx, opts, cmd)
		onComplete(out.Err(opts.ErrorOnFail))
	}()
	return nil
}

// Run is the blocking form of Start. It returns the outcome and the error
// Start would have passed to onComplete. If the command cannot be built,
// the outcome is nil.
func (r *Runner) Run(ctx context.Context, cfg *config.Options, overrides ...config.Override) (*Outcome, error) {
	opts, cmd, err := r.prepare(cfg, overrides)
	if err != nil {
		return nil, err
	}
	out := r.execute(ctx, opts, cmd)
	return out, out.Err(opts.ErrorOnFail)
}

func (r *Runner) prepare(cfg *config.Options, overrides []config.Override) (*config.Options, command.Command, error) {
	opts := cfg.With(overrides...)
	cmd, err := r.builder.Construct(opts)
	if err != nil {
		return nil, command.Command{}, err
	}
	if opts.LogCommand {
		r.log.Infof("Using msbuild command: %s", cmd)
	}
	return opts, cmd, nil
}

func (r *Runner) execute(ctx context.Context, opts *config.Options, cmd command.Command) *Outcome {
	out := &Outcome{
		RunID:   uuid.NewString(),
		Project: opts.Project,
		Command: cmd,
		Started: time.Now(),
	}
	log := r.log.WithField("run_id", out.RunID)

	proc, err := r.spawner.Spawn(ctx, cmd.Executable, cmd.Args, SpawnOptions{
		Dir:    opts.WorkingDir,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	})
	if err != nil {
		return r.finish(log, out, 0, err)
	}

	var (
		g       errgroup.Group
		code    int
		waitErr error
	)
	if stdout := proc.Stdout(); stdout != nil {
		g.Go(func() error { return forward(stdout, log.Info) })
	}
	if stderr := proc.Stderr(); stderr != nil {
		g.Go(func() error { return forward(stderr, log.Warn) })
	}
	// Wait runs alongside the pumps; the streams end when it returns.
	g.Go(func() error {
		code, waitErr = proc.Wait()
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Debugf("reading build output: %v", err)
	}

	return r.finish(log, out, code, waitErr)
}

// finish classifies the run, logs its banner and notifies observers.
func (r *Runner) finish(log logrus.FieldLogger, out *Outcome, code int, err error) *Outcome {
	out.Duration = time.Since(out.Started)
	switch {
	case err != nil:
		out.Kind = FailedToSpawn
		out.Cause = err
		log.Error(err)
		log.Error(color.RedString("%s", out.Message()))
	case code == 0:
		out.Kind = Succeeded
		log.Info(color.CyanString("%s", out.Message()))
	default:
		out.Kind = FailedWithCode
		out.Code = code
		log.Error(color.RedString("%s", out.Message()))
	}

	for _, o := range r.observers {
		o.Observe(out)
	}
	return out
}
