package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gmahomarf/msbuild-runner/internal/workflow"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ workspaceParams) (*sdkmcp.CallToolResult, any, error) {
	var b strings.Builder
	engine := h.currentEngine()
	cfg := engine.Config

	fmt.Fprintf(&b, "Workspace: %s\n", engine.Workspace)
	fmt.Fprintf(&b, "Platform: %s/%s\n", cfg.Platform, cfg.Architecture)
	fmt.Fprintf(&b, "Tools version: %s\n", cfg.ToolsVersion)
	fmt.Fprintln(&b)

	projects, err := engine.ResolveProjects(nil)
	switch {
	case errors.Is(err, workflow.ErrNoProjects):
		fmt.Fprintln(&b, "Projects: none found")
	case err != nil:
		return errorResult(fmt.Sprintf("Failed to discover projects: %v", err))
	default:
		fmt.Fprintf(&b, "Projects (%d):\n", len(projects))
		for _, p := range projects {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	fmt.Fprintln(&b)

	// Non-fatal: discovery results are still useful without a command.
	if engine.Builder != nil {
		cmd, err := engine.Builder.Construct(cfg)
		if err != nil {
			fmt.Fprintf(&b, "Command: (unavailable: %v)\n", err)
		} else {
			fmt.Fprintf(&b, "Executable: %s\n", cmd.Executable)
			fmt.Fprintf(&b, "Command: %s\n", cmd)
		}
	}

	return textResult(b.String())
}
