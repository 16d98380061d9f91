package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FromRoot(t *testing.T) {
	dir := t.TempDir()
	data := "configuration: Debug\ntargets: [Build, Test]\ntimeout: 10m\nerror_on_fail: true\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q", res.Root, dir)
	}
	if res.Options.Configuration != "Debug" {
		t.Errorf("Configuration = %q, want Debug", res.Options.Configuration)
	}
	if len(res.Options.Targets) != 2 || res.Options.Targets[0] != "Build" || res.Options.Targets[1] != "Test" {
		t.Errorf("Targets = %v, want [Build Test]", res.Options.Targets)
	}
	if !res.Options.ErrorOnFail {
		t.Error("ErrorOnFail = false, want true")
	}
	if res.Options.Timeout() != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", res.Options.Timeout())
	}
}

func TestLoad_KeepsDefaultsForAbsentKeys(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("verbosity: minimal\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	o := res.Options
	if o.Verbosity != "minimal" {
		t.Errorf("Verbosity = %q, want minimal", o.Verbosity)
	}
	if !o.Stderr || !o.NoLogo || !o.NodeReuse {
		t.Errorf("boolean defaults lost: stderr=%v nologo=%v nodeReuse=%v", o.Stderr, o.NoLogo, o.NodeReuse)
	}
	if o.Configuration != "Release" {
		t.Errorf("Configuration = %q, want Release", o.Configuration)
	}
	if o.Properties == nil {
		t.Error("Properties is nil")
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("tools_version: \"14.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "src", "App")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != root {
		t.Errorf("Root = %q, want %q", res.Root, root)
	}
	if res.Options.ToolsVersion != "14.0" {
		t.Errorf("ToolsVersion = %q, want 14.0", res.Options.ToolsVersion)
	}
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q (fallback to workspace)", res.Root, dir)
	}
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
	if res.Options.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", res.Options.Timeout())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("targets: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWith_DoesNotMutateBase(t *testing.T) {
	base := Default()
	merged := base.With(
		WithProject("App.sln"),
		WithTargets("Build"),
		WithProperty("OutDir", "bin"),
		WithErrorOnFail(true),
	)

	if base.Project != "" || base.ErrorOnFail || base.Targets[0] != "Rebuild" {
		t.Errorf("base mutated: %+v", base)
	}
	if _, ok := base.Properties["OutDir"]; ok {
		t.Error("base properties mutated")
	}
	if merged.Project != "App.sln" || !merged.ErrorOnFail || merged.Targets[0] != "Build" {
		t.Errorf("merged = %+v", merged)
	}
	if merged.Properties["OutDir"] != "bin" {
		t.Errorf("merged OutDir = %q, want bin", merged.Properties["OutDir"])
	}
}

func TestWithTargets_EmptyIgnored(t *testing.T) {
	got := Default().With(WithTargets())
	if len(got.Targets) != 1 || got.Targets[0] != "Rebuild" {
		t.Errorf("Targets = %v, want [Rebuild]", got.Targets)
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	for _, raw := range []string{"10x", "soon", "-5m"} {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte("timeout: "+raw+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(dir)
		if err == nil {
			t.Errorf("Load with timeout %q: expected error", raw)
			continue
		}
		if !strings.Contains(err.Error(), "invalid timeout") {
			t.Errorf("Load with timeout %q: error = %v, want 'invalid timeout'", raw, err)
		}
	}
}
