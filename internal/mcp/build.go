package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gmahomarf/msbuild-runner/internal/config"
	"github.com/gmahomarf/msbuild-runner/internal/report"
	"github.com/gmahomarf/msbuild-runner/internal/workflow"
)

type buildParams struct {
	Projects      []string          `json:"projects,omitempty" jsonschema:"Solution or project files, relative to the workspace. Defaults to the configured projects, then to discovery."`
	Targets       []string          `json:"targets,omitempty" jsonschema:"MSBuild targets (e.g. Build, Rebuild, Clean). Default: the configured targets."`
	Configuration string            `json:"configuration,omitempty" jsonschema:"Build configuration (e.g. Debug, Release)."`
	Properties    map[string]string `json:"properties,omitempty" jsonschema:"Extra MSBuild properties passed as /property:Key=Value."`
	Verbosity     string            `json:"verbosity,omitempty" jsonschema:"MSBuild verbosity: quiet, minimal, normal, detailed or diagnostic."`
	ErrorOnFail   *bool             `json:"error_on_fail,omitempty" jsonschema:"Stop at the first failed project. Default: the configured value."`
}

func (p buildParams) overrides() []config.Override {
	var ovs []config.Override
	if len(p.Targets) > 0 {
		ovs = append(ovs, config.WithTargets(p.Targets...))
	}
	if p.Configuration != "" {
		ovs = append(ovs, config.WithConfiguration(p.Configuration))
	}
	for k, v := range p.Properties {
		ovs = append(ovs, config.WithProperty(k, v))
	}
	if p.Verbosity != "" {
		ovs = append(ovs, config.WithVerbosity(p.Verbosity))
	}
	if p.ErrorOnFail != nil {
		ovs = append(ovs, config.WithErrorOnFail(*p.ErrorOnFail))
	}
	return ovs
}

func (h *handler) buildHandler(ctx context.Context, req *mcp.CallToolRequest, params buildParams) (*mcp.CallToolResult, any, error) {
	engine := h.currentEngine()
	ctx, cancel := withTimeout(ctx, engine)
	defer cancel()

	result, err := engine.Build(ctx, params.Projects, params.overrides()...)
	if err != nil && result == nil {
		return errorResult(fmt.Sprintf("build failed: %v", err))
	}

	// The engine saves through its own store; keep the inspect store in
	// sync when they differ.
	if h.store != nil && h.store != engine.Store {
		_ = h.store.Save(result.RunResult)
	}

	text := formatBuild(result)
	if err != nil {
		text += fmt.Sprintf("\nWarning: %v\n", err)
	}
	return textResult(text)
}

func formatBuild(result *workflow.BuildResult) string {
	rr := result.RunResult
	var b strings.Builder

	failed := result.Err != nil || rr.Failed()
	if failed {
		fmt.Fprintln(&b, "Status: FAIL")
	} else {
		fmt.Fprintln(&b, "Status: PASS")
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Projects:")
	for _, p := range rr.Projects {
		switch p.Status {
		case report.StatusSkipped:
			fmt.Fprintf(&b, "  %s: skipped\n", p.Project)
		case report.StatusError:
			fmt.Fprintf(&b, "  %s: error\n", p.Project)
		default:
			fmt.Fprintf(&b, "  %s: %s (exit %d, %dms)\n", p.Project, p.Status, p.ExitCode, p.DurationMS)
		}
	}
	fmt.Fprintln(&b)

	if !failed {
		fmt.Fprintln(&b, "All projects built.")
		return b.String()
	}

	fmt.Fprintln(&b, "Failures:")
	for _, p := range rr.Projects {
		if p.Status == report.StatusFail || p.Status == report.StatusError {
			fmt.Fprintf(&b, "  %s: %s\n", p.Project, p.Message)
		}
	}
	if result.Err != nil {
		fmt.Fprintf(&b, "  stopped: %v\n", result.Err)
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Inspect with msbuild_inspect(run_id=%q, project=\"<project>\").\n", rr.ID)
	return b.String()
}

type commandParams struct {
	Projects      []string          `json:"projects,omitempty" jsonschema:"Solution or project files, relative to the workspace."`
	Targets       []string          `json:"targets,omitempty" jsonschema:"MSBuild targets."`
	Configuration string            `json:"configuration,omitempty" jsonschema:"Build configuration."`
	Properties    map[string]string `json:"properties,omitempty" jsonschema:"Extra MSBuild properties."`
}

func (h *handler) commandHandler(ctx context.Context, req *mcp.CallToolRequest, params commandParams) (*mcp.CallToolResult, any, error) {
	bp := buildParams{
		Targets:       params.Targets,
		Configuration: params.Configuration,
		Properties:    params.Properties,
	}
	cmds, err := h.currentEngine().Preview(params.Projects, bp.overrides()...)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to construct command: %v", err))
	}

	var b strings.Builder
	for _, c := range cmds {
		fmt.Fprintln(&b, c.String())
	}
	return textResult(b.String())
}
