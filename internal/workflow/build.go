package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gmahomarf/msbuild-runner/internal/command"
	"github.com/gmahomarf/msbuild-runner/internal/config"
	"github.com/gmahomarf/msbuild-runner/internal/report"
	"github.com/gmahomarf/msbuild-runner/internal/runner"
)

// BuildResult holds the full outcome of a build run.
type BuildResult struct {
	RunResult *report.RunResult
	FailedIdx int   // index of the project that stopped the run, -1 if none
	Err       error // error that stopped the run, nil unless error_on_fail
}

// Build runs the resolved projects in order, one at a time. A project
// failure only stops the run when the runner surfaces it as an error,
// which happens with error_on_fail; otherwise every project is attempted.
// Projects after the stopping one are reported as skipped.
func (e *Engine) Build(ctx context.Context, projects []string, overrides ...config.Override) (*BuildResult, error) {
	projs, err := e.ResolveProjects(projects)
	if err != nil {
		return nil, err
	}

	rr := &report.RunResult{
		ID:       uuid.NewString(),
		Started:  time.Now().UTC(),
		Projects: make([]report.ProjectResult, len(projs)),
	}
	for i, p := range projs {
		rr.Projects[i] = report.ProjectResult{Project: p, Status: report.StatusSkipped}
	}

	res := &BuildResult{RunResult: rr, FailedIdx: -1}
	for i, p := range projs {
		if err := ctx.Err(); err != nil {
			res.FailedIdx, res.Err = i, err
			break
		}

		ovs := append(overrides[:len(overrides):len(overrides)], config.WithProject(p))
		out, err := e.Runner.Run(ctx, e.Config, ovs...)
		if out == nil {
			// The command could not be built.
			rr.Projects[i].Status = report.StatusError
			rr.Projects[i].Message = err.Error()
			res.FailedIdx, res.Err = i, err
			break
		}
		rr.Projects[i] = projectResult(p, out)
		if err != nil {
			res.FailedIdx, res.Err = i, err
			break
		}
	}

	if e.Store != nil {
		if err := e.Store.Save(rr); err != nil {
			return res, fmt.Errorf("saving run %s: %w", rr.ID, err)
		}
	}
	return res, nil
}

func projectResult(project string, out *runner.Outcome) report.ProjectResult {
	pr := report.ProjectResult{
		Project:    project,
		BuildID:    out.RunID,
		Executable: out.Command.Executable,
		Args:       out.Command.Args,
		ExitCode:   out.Code,
		Message:    out.Message(),
		DurationMS: out.Duration.Milliseconds(),
	}
	switch out.Kind {
	case runner.Succeeded:
		pr.Status = report.StatusPass
	case runner.FailedWithCode:
		pr.Status = report.StatusFail
	default:
		pr.Status = report.StatusError
		pr.ExitCode = -1
		if out.Cause != nil {
			pr.Message = fmt.Sprintf("%s %v", pr.Message, out.Cause)
		}
	}
	return pr
}

// Preview returns the commands Build would spawn, without running them.
func (e *Engine) Preview(projects []string, overrides ...config.Override) ([]command.Command, error) {
	if e.Builder == nil {
		return nil, fmt.Errorf("no command builder configured")
	}
	projs, err := e.ResolveProjects(projects)
	if err != nil {
		return nil, err
	}
	cmds := make([]command.Command, 0, len(projs))
	for _, p := range projs {
		ovs := append(overrides[:len(overrides):len(overrides)], config.WithProject(p))
		cmd, err := e.Builder.Construct(e.Config.With(ovs...))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
