package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gmahomarf/msbuild-runner/internal/report"
)

type inspectParams struct {
	RunID   string `json:"run_id" jsonschema:"the run ID from an msbuild_build result"`
	Project string `json:"project,omitempty" jsonschema:"project path as shown in the build output, or just its file name (e.g. App.csproj). Defaults to every project in the run."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if h.store == nil {
		return errorResult("no report store configured")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	projects := result.Projects
	if params.Project != "" {
		projects = report.ByProject(result, params.Project)
		if len(projects) == 0 {
			return textResult(fmt.Sprintf("No project %s in run %s.", params.Project, params.RunID))
		}
	}

	return textResult(formatInspectOutput(result, projects))
}

func formatInspectOutput(result *report.RunResult, projects []report.ProjectResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (started %s)\n", result.ID, result.Started.Format("2006-01-02 15:04:05Z07:00"))

	for _, p := range projects {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s: %s\n", p.Project, p.Status)
		if p.Status == report.StatusSkipped {
			continue
		}
		if p.BuildID != "" {
			fmt.Fprintf(&b, "  Build: %s\n", p.BuildID)
		}
		if p.Executable != "" {
			argv := append([]string{p.Executable}, p.Args...)
			fmt.Fprintf(&b, "  Command: %s\n", strings.Join(argv, " "))
		}
		fmt.Fprintf(&b, "  Exit code: %d\n", p.ExitCode)
		fmt.Fprintf(&b, "  Duration: %dms\n", p.DurationMS)
		if p.Message != "" {
			fmt.Fprintf(&b, "  Message: %s\n", p.Message)
		}
	}

	return b.String()
}
