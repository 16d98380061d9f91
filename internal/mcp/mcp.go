// Package mcp provides the msbuild-runner MCP server, registering the build
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	msbuildrunner "github.com/gmahomarf/msbuild-runner"
	"github.com/gmahomarf/msbuild-runner/internal/config"
	"github.com/gmahomarf/msbuild-runner/internal/report"
	"github.com/gmahomarf/msbuild-runner/internal/runner"
	"github.com/gmahomarf/msbuild-runner/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	store   report.Store
	spawner *runner.ExecSpawner // nil unless builds spawn real processes

	mu     sync.RWMutex
	engine *workflow.Engine // replaced, never mutated, once serving
}

// NewServer creates an MCP server with all build tools registered.
// engine.Store is used for msbuild_inspect when store is nil.
func NewServer(engine *workflow.Engine, store report.Store, opts ...ServerOption) *mcp.Server {
	if store == nil {
		store = engine.Store
	}
	h := &handler{engine: engine, store: store}

	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	h.spawner = so.spawner

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "msbuild-runner", Version: msbuildrunner.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "msbuild_workspace",
		Description: "Summarise the workspace: discovered solutions and projects, and the msbuild command that would be used.",
	}, h.workspaceHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "msbuild_build",
		Description: `Build solutions or projects with MSBuild, one after another.

Defaults to the configured projects, then to the solutions at the workspace root,
then to every project file. Failures are reported per project; with error_on_fail
the run stops at the first failure. Results are stored for drill-down via msbuild_inspect.`,
	}, h.buildHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "msbuild_command",
		Description: "Show the msbuild command lines a build would run, without running them.",
	}, h.commandHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "msbuild_inspect",
		Description: `Drill into results from an msbuild_build run.

Use the run_id from the build output. Pass project (a path or a file name) to
limit the output to one project.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	spawner *runner.ExecSpawner
}

// WithSpawner lets the server move the spawner's workspace when the client
// reports a different root.
func WithSpawner(s *runner.ExecSpawner) ServerOption {
	return func(o *serverOptions) {
		o.spawner = s
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// engine, spawner and config if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		return
	}

	h.retarget(workspace, loaded.Options)
}

// retarget points the server at another workspace. Tool calls already in
// flight keep the engine they started with.
func (h *handler) retarget(workspace string, cfg *config.Options) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := *h.engine
	next.Config = cfg
	next.Workspace = workspace
	h.engine = &next
	if h.spawner != nil {
		h.spawner.SetWorkspace(workspace)
	}
}

// currentEngine returns the engine for one tool call.
func (h *handler) currentEngine() *workflow.Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine
}

// withTimeout applies the configured build timeout, if any.
func withTimeout(ctx context.Context, engine *workflow.Engine) (context.Context, context.CancelFunc) {
	if d := engine.Config.Timeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
