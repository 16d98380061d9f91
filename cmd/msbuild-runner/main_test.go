package main

import (
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gmahomarf/msbuild-runner/internal/config"
	"github.com/gmahomarf/msbuild-runner/internal/metrics"
	"github.com/gmahomarf/msbuild-runner/internal/report"
	"github.com/gmahomarf/msbuild-runner/internal/runner"
	"github.com/gmahomarf/msbuild-runner/internal/workflow"
)

func TestPropertyFlag(t *testing.T) {
	p := propertyFlag{}
	if err := p.Set("OutDir=bin/out"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Set("Empty="); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if p["OutDir"] != "bin/out" || p["Empty"] != "" {
		t.Errorf("properties = %v", p)
	}
	for _, bad := range []string{"NoValue", "=x"} {
		if err := p.Set(bad); err == nil {
			t.Errorf("Set(%q) = nil, want error", bad)
		}
	}
}

func TestBuildFlags_OnlyExplicitBooleansOverride(t *testing.T) {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	bf := registerBuildFlags(fs)
	if err := fs.Parse([]string{"-t", "Clean,Build", "-p", "A=1", "-log-command"}); err != nil {
		t.Fatal(err)
	}

	base := config.Default()
	base.ErrorOnFail = true
	got := base.With(bf.overrides(fs)...)

	if strings.Join(got.Targets, ";") != "Clean;Build" {
		t.Errorf("Targets = %v, want [Clean Build]", got.Targets)
	}
	if got.Properties["A"] != "1" {
		t.Errorf("Properties = %v, want A=1", got.Properties)
	}
	if !got.LogCommand {
		t.Error("LogCommand = false, want true")
	}
	if !got.ErrorOnFail {
		t.Error("ErrorOnFail was reset by an unset flag")
	}
	if !got.Stderr {
		t.Error("Stderr was reset by an unset flag")
	}
}

func TestRouter(t *testing.T) {
	store := report.NewLRUStore(2, report.NewDiskStore(t.TempDir()))
	rr := &report.RunResult{ID: uuid.NewString(), Started: time.Now().UTC()}
	if err := store.Save(rr); err != nil {
		t.Fatal(err)
	}

	m := metrics.New(nil)
	m.Observe(&runner.Outcome{Kind: runner.Succeeded})

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test", Version: "v0"}, nil)
	ts := httptest.NewServer(newRouter(server, m, store))
	defer ts.Close()

	tests := []struct {
		path string
		want int
		body string
	}{
		{"/runs/" + rr.ID, http.StatusOK, rr.ID},
		{"/runs/" + uuid.NewString(), http.StatusNotFound, "run not found"},
		{"/runs/not-a-uuid", http.StatusBadRequest, "invalid run id"},
		{"/metrics", http.StatusOK, "msbuild_runner_builds_total"},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tt.path, err)
		}
		var b strings.Builder
		_, _ = io.Copy(&b, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
		if !strings.Contains(b.String(), tt.body) {
			t.Errorf("GET %s body = %q, want to contain %q", tt.path, b.String(), tt.body)
		}
	}
}

func TestFormatBuildCLI(t *testing.T) {
	result := &workflow.BuildResult{
		RunResult: &report.RunResult{
			ID: "run-1",
			Projects: []report.ProjectResult{
				{Project: "a.csproj", Status: report.StatusPass},
				{Project: "b.csproj", Status: report.StatusFail, ExitCode: 3},
				{Project: "c.csproj", Status: report.StatusSkipped},
			},
		},
		FailedIdx: 1,
	}
	got := formatBuildCLI(result)
	for _, want := range []string{"FAIL\n", "FAIL (exit 3)", "c.csproj", "Run: run-1"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatBuildCLI missing %q:\n%s", want, got)
		}
	}
}
