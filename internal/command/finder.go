package command

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gmahomarf/msbuild-runner/internal/config"
)

// frameworkDirs maps the .NET Framework era tools versions to their
// directory under %WINDIR%\Microsoft.NET\Framework[64].
var frameworkDirs = map[string]string{
	"2.0": "v2.0.50727",
	"3.5": "v3.5",
	"4.0": "v4.0.30319",
}

// visualStudioYears maps Visual Studio bundled tools versions to the
// installation year and the MSBuild sub-directory they ship in.
var visualStudioYears = map[string]struct {
	Year   string
	SubDir string
}{
	"15.0": {"2017", "15.0"},
	"16.0": {"2019", "Current"},
	"17.0": {"2022", "Current"},
}

var visualStudioEditions = []string{"Enterprise", "Professional", "Community", "BuildTools"}

// autoOrder is the search order for tools_version "auto" on Windows.
var autoOrder = []string{"17.0", "16.0", "15.0", "14.0", "12.0", "4.0", "3.5", "2.0"}

// Finder locates the build executable. The function fields make the host
// environment replaceable in tests; nil fields use the real OS.
type Finder struct {
	Getenv   func(string) string
	LookPath func(string) (string, error)
	Exists   func(string) bool
}

func (f Finder) getenv(key string) string {
	if f.Getenv != nil {
		return f.Getenv(key)
	}
	return os.Getenv(key)
}

func (f Finder) onPath(name string) bool {
	lookPath := f.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath(name)
	return err == nil
}

func (f Finder) exists(path string) bool {
	if f.Exists != nil {
		return f.Exists(path)
	}
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// Find returns the executable for opts and any arguments that must
// precede the MSBuild switches (e.g. "msbuild" for the dotnet driver).
func (f Finder) Find(opts *config.Options) (string, []string, error) {
	if opts.MSBuildPath != "" {
		return opts.MSBuildPath, nil, nil
	}
	if opts.ToolsVersion == config.ToolsVersionDotnet {
		return "dotnet", []string{"msbuild"}, nil
	}
	if opts.Platform != "windows" {
		return f.findUnix()
	}
	return f.findWindows(opts)
}

func (f Finder) findUnix() (string, []string, error) {
	switch {
	case f.onPath("msbuild"):
		return "msbuild", nil, nil
	case f.onPath("xbuild"):
		return "xbuild", nil, nil
	case f.onPath("dotnet"):
		return "dotnet", []string{"msbuild"}, nil
	}
	// Let the spawn report the missing binary.
	return "xbuild", nil, nil
}

func (f Finder) findWindows(opts *config.Options) (string, []string, error) {
	version := opts.ToolsVersion
	if version == "" || version == config.ToolsVersionAuto {
		for _, v := range autoOrder {
			for _, candidate := range f.windowsCandidates(v, opts.Is64Bit()) {
				if f.exists(candidate) {
					return candidate, nil, nil
				}
			}
		}
		return "msbuild.exe", nil, nil
	}

	candidates := f.windowsCandidates(version, opts.Is64Bit())
	if candidates == nil {
		return "", nil, fmt.Errorf("unsupported tools_version %q", version)
	}
	for _, candidate := range candidates {
		if f.exists(candidate) {
			return candidate, nil, nil
		}
	}
	return candidates[0], nil, nil
}

// windowsCandidates lists the install locations for a tools version,
// most likely first. It returns nil for unknown versions.
func (f Finder) windowsCandidates(version string, is64 bool) []string {
	if dir, ok := frameworkDirs[version]; ok {
		framework := "Framework"
		if is64 {
			framework = "Framework64"
		}
		windir := f.getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{winJoin(windir, "Microsoft.NET", framework, dir, "MSBuild.exe")}
	}

	programFiles := f.getenv("ProgramFiles(x86)")
	if programFiles == "" {
		programFiles = `C:\Program Files (x86)`
	}

	if version == "12.0" || version == "14.0" {
		bin := winJoin(programFiles, "MSBuild", version, "Bin")
		if is64 {
			bin = winJoin(bin, "amd64")
		}
		return []string{winJoin(bin, "MSBuild.exe")}
	}

	vs, ok := visualStudioYears[version]
	if !ok {
		return nil
	}
	// Visual Studio 2022 is a 64-bit application installed under Program Files.
	if vs.Year == "2022" {
		if pf := f.getenv("ProgramFiles"); pf != "" {
			programFiles = pf
		} else {
			programFiles = `C:\Program Files`
		}
	}
	out := make([]string, 0, len(visualStudioEditions))
	for _, edition := range visualStudioEditions {
		bin := winJoin(programFiles, "Microsoft Visual Studio", vs.Year, edition, "MSBuild", vs.SubDir, "Bin")
		if is64 {
			bin = winJoin(bin, "amd64")
		}
		out = append(out, winJoin(bin, "MSBuild.exe"))
	}
	return out
}

// winJoin joins Windows path elements regardless of the host OS.
func winJoin(elem ...string) string {
	for i, e := range elem {
		elem[i] = strings.TrimRight(e, `\`)
	}
	return strings.Join(elem, `\`)
}
