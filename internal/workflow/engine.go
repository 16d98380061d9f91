// Package workflow provides the build pipeline: it resolves which projects
// to build and runs them one after another. It is consumed by both the MCP
// server and the CLI commands.
package workflow

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gmahomarf/msbuild-runner/internal/config"
	"github.com/gmahomarf/msbuild-runner/internal/report"
	"github.com/gmahomarf/msbuild-runner/internal/runner"
)

// BuildRunner runs a single build. Implemented by runner.Runner.
type BuildRunner interface {
	Run(ctx context.Context, cfg *config.Options, overrides ...config.Override) (*runner.Outcome, error)
}

// ErrNoProjects is returned when there is nothing to build.
var ErrNoProjects = errors.New("no solution or project files found")

// projectExts are the MSBuild project file extensions picked up by discovery.
var projectExts = []string{".csproj", ".vbproj", ".fsproj", ".vcxproj", ".proj"}

// skipDirs are never descended into during discovery.
var skipDirs = map[string]bool{
	".git": true, "bin": true, "obj": true, "node_modules": true, "packages": true, ".vs": true,
}

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config    *config.Options
	Runner    BuildRunner
	Builder   runner.CommandBuilder // used by Preview
	Store     report.Store          // optional
	Workspace string                // builds run from here; relative projects resolve against it
}

// ResolveProjects normalises project arguments. It accepts:
//
//   - Relative paths (e.g. "src/App/App.csproj"): passed through.
//   - Absolute paths inside the workspace: made workspace-relative.
//   - Absolute paths outside the workspace: dropped.
//
// When the list is empty it falls back to the configured projects, and
// then to discovery: solutions at the workspace root first, otherwise
// every project file below it.
func (e *Engine) ResolveProjects(projects []string) ([]string, error) {
	if len(projects) == 0 && e.Config != nil {
		projects = e.Config.Projects
	}

	resolved := make([]string, 0, len(projects))
	for _, p := range projects {
		if !filepath.IsAbs(p) {
			resolved = append(resolved, filepath.Clean(p))
			continue
		}
		rel, err := filepath.Rel(e.Workspace, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		resolved = append(resolved, rel)
	}
	if len(resolved) > 0 {
		return resolved, nil
	}
	return e.Discover()
}

// Discover lists buildable files in the workspace, relative to it.
func (e *Engine) Discover() ([]string, error) {
	solutions, err := filepath.Glob(filepath.Join(e.Workspace, "*.sln"))
	if err != nil {
		return nil, err
	}
	if len(solutions) > 0 {
		out := make([]string, len(solutions))
		for i, s := range solutions {
			out[i] = filepath.Base(s)
		}
		slices.Sort(out)
		return out, nil
	}

	var out []string
	err = filepath.WalkDir(e.Workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != e.Workspace && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(projectExts, strings.ToLower(filepath.Ext(path))) {
			rel, err := filepath.Rel(e.Workspace, path)
			if err != nil {
				return err
			}
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoProjects
	}
	slices.Sort(out)
	return out, nil
}
