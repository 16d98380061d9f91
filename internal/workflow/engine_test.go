package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gmahomarf/msbuild-runner/internal/config"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("<Project />"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolveProjects_Relative(t *testing.T) {
	e := &Engine{Workspace: "/project"}
	got, err := e.ResolveProjects([]string{"./src/App/App.csproj"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != filepath.Join("src", "App", "App.csproj") {
		t.Errorf("ResolveProjects = %v, want [src/App/App.csproj]", got)
	}
}

func TestResolveProjects_AbsoluteInsideWorkspace(t *testing.T) {
	e := &Engine{Workspace: "/project"}
	got, err := e.ResolveProjects([]string{"/project/App.sln"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "App.sln" {
		t.Errorf("ResolveProjects = %v, want [App.sln]", got)
	}
}

func TestResolveProjects_AbsoluteOutsideFallsBackToDiscovery(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Main.sln")
	e := &Engine{Workspace: dir}

	got, err := e.ResolveProjects([]string{"/elsewhere/Other.sln"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "Main.sln" {
		t.Errorf("ResolveProjects = %v, want [Main.sln]", got)
	}
}

func TestResolveProjects_ConfiguredProjects(t *testing.T) {
	cfg := config.Default()
	cfg.Projects = []string{"a.csproj", "b.csproj"}
	e := &Engine{Workspace: "/project", Config: cfg}

	got, err := e.ResolveProjects(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a.csproj" || got[1] != "b.csproj" {
		t.Errorf("ResolveProjects = %v, want [a.csproj b.csproj]", got)
	}
}

func TestDiscover_PrefersSolutions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "B.sln", "A.sln", "src/App/App.csproj")
	e := &Engine{Workspace: dir}

	got, err := e.Discover()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "A.sln" || got[1] != "B.sln" {
		t.Errorf("Discover = %v, want [A.sln B.sln]", got)
	}
}

func TestDiscover_ProjectFilesSkipOutputDirs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"src/App/App.csproj",
		"src/Lib/Lib.fsproj",
		"src/App/obj/Generated.csproj",
		"node_modules/pkg/x.csproj",
		"README.md",
	)
	e := &Engine{Workspace: dir}

	got, err := e.Discover()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join("src", "App", "App.csproj"), filepath.Join("src", "Lib", "Lib.fsproj")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Discover = %v, want %v", got, want)
	}
}

func TestDiscover_Empty(t *testing.T) {
	e := &Engine{Workspace: t.TempDir()}
	if _, err := e.Discover(); !errors.Is(err, ErrNoProjects) {
		t.Errorf("Discover error = %v, want ErrNoProjects", err)
	}
}
