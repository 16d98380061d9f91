// Package report provides persistence and retrieval of build run results.
// A run covers one or more projects; each project entry records only the
// command, exit code and banner message.
package report

import (
	"path/filepath"
	"strings"
	"time"
)

// Status values for a project entry.
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusError   = "error" // the build tool could not be run
	StatusSkipped = "skipped"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the outcome of one workflow run.
type RunResult struct {
	ID       string          `json:"id"`
	Started  time.Time       `json:"started"`
	Projects []ProjectResult `json:"projects"`
}

// ProjectResult holds the outcome of building a single project.
type ProjectResult struct {
	Project    string   `json:"project"`
	BuildID    string   `json:"build_id,omitempty"` // runner outcome ID
	Executable string   `json:"executable,omitempty"`
	Args       []string `json:"args,omitempty"`
	Status     string   `json:"status"`
	ExitCode   int      `json:"exit_code"`
	Message    string   `json:"message"`
	DurationMS int64    `json:"duration_ms"`
}

// Failed reports whether any project in the run failed or errored.
func (r *RunResult) Failed() bool {
	for _, p := range r.Projects {
		if p.Status == StatusFail || p.Status == StatusError {
			return true
		}
	}
	return false
}

// ByProject returns the entries whose project path equals name, or whose
// base name equals name when name has no directory part.
func ByProject(result *RunResult, name string) []ProjectResult {
	var out []ProjectResult
	for _, p := range result.Projects {
		if p.Project == name {
			out = append(out, p)
			continue
		}
		if !strings.ContainsAny(name, `/\`) && filepath.Base(p.Project) == name {
			out = append(out, p)
		}
	}
	return out
}
