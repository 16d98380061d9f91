// Package config loads the optional .msbuildrunner YAML file and holds the
// options that drive a single build run.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the optional configuration file.
const FileName = ".msbuildrunner"

// Tools versions with special meaning. Any other value must name a
// concrete MSBuild version such as "14.0".
const (
	ToolsVersionAuto   = "auto"
	ToolsVersionDotnet = "dotnet"
)

// Options holds the configuration for a build run.
// Zero values are meaningful; use Default for the documented defaults.
type Options struct {
	// Runner flags.
	Stdout      bool `yaml:"stdout"`        // forward child stdout to the log
	Stderr      bool `yaml:"stderr"`        // forward child stderr to the log
	LogCommand  bool `yaml:"log_command"`   // log the command before spawning
	ErrorOnFail bool `yaml:"error_on_fail"` // surface failures to the caller

	// Command construction.
	Project                 string            `yaml:"project"`
	Projects                []string          `yaml:"projects"`
	Targets                 []string          `yaml:"targets"`
	Configuration           string            `yaml:"configuration"`
	SolutionPlatform        string            `yaml:"solution_platform"`
	ToolsVersion            string            `yaml:"tools_version"`
	Architecture            string            `yaml:"architecture"` // x86, x64, arm64
	Platform                string            `yaml:"platform"`     // GOOS-style host platform
	MSBuildPath             string            `yaml:"msbuild_path"`
	Properties              map[string]string `yaml:"properties"`
	Verbosity               string            `yaml:"verbosity"`
	MaxCPUCount             int               `yaml:"max_cpu_count"` // <0 omits the switch
	NoLogo                  bool              `yaml:"nologo"`
	NodeReuse               bool              `yaml:"node_reuse"`
	FileLoggerParameters    string            `yaml:"file_logger_parameters"`
	ConsoleLoggerParameters string            `yaml:"console_logger_parameters"`
	LoggerParameters        string            `yaml:"logger_parameters"`
	PublishDirectory        string            `yaml:"publish_directory"`
	CustomArgs              []string          `yaml:"custom_args"`
	WorkingDir              string            `yaml:"working_dir"` // relative to the workspace

	// Ambient settings, never read by the runner itself.
	RawTimeout string `yaml:"timeout"` // e.g. "10m"
	LogLevel   string `yaml:"log_level"`
	ReportDir  string `yaml:"report_dir"` // empty keeps reports in a temp dir
}

// Default returns the options used when no configuration file sets a value.
func Default() *Options {
	return &Options{
		Stderr:        true,
		Targets:       []string{"Rebuild"},
		Configuration: "Release",
		ToolsVersion:  ToolsVersionAuto,
		Architecture:  hostArchitecture(),
		Platform:      runtime.GOOS,
		Properties:    map[string]string{},
		Verbosity:     "normal",
		NoLogo:        true,
		NodeReuse:     true,
		LogLevel:      "info",
	}
}

func hostArchitecture() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	default:
		return runtime.GOARCH
	}
}

// Timeout returns the configured build timeout, or zero when none is set.
func (o *Options) Timeout() time.Duration {
	if o.RawTimeout != "" {
		d, err := time.ParseDuration(o.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// validate rejects values that would otherwise be silently ignored.
func (o *Options) validate() error {
	if o.RawTimeout != "" {
		d, err := time.ParseDuration(o.RawTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", o.RawTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid timeout %q: must not be negative", o.RawTimeout)
		}
	}
	return nil
}

// Is64Bit reports whether the configured architecture is a 64-bit one.
func (o *Options) Is64Bit() bool {
	return o.Architecture == "x64" || o.Architecture == "arm64"
}

// Clone returns a deep copy of o.
func (o *Options) Clone() *Options {
	c := *o
	c.Projects = slices.Clone(o.Projects)
	c.Targets = slices.Clone(o.Targets)
	c.CustomArgs = slices.Clone(o.CustomArgs)
	c.Properties = maps.Clone(o.Properties)
	if c.Properties == nil {
		c.Properties = map[string]string{}
	}
	return &c
}

// Override mutates a cloned Options before a run.
type Override func(*Options)

// With returns a copy of o with the overrides applied in order.
// o itself is never modified.
func (o *Options) With(overrides ...Override) *Options {
	c := o.Clone()
	for _, ov := range overrides {
		if ov != nil {
			ov(c)
		}
	}
	return c
}

// WithProject sets the project or solution file to build.
func WithProject(path string) Override {
	return func(o *Options) { o.Project = path }
}

// WithTargets replaces the build targets. An empty list is ignored.
func WithTargets(targets ...string) Override {
	return func(o *Options) {
		if len(targets) > 0 {
			o.Targets = slices.Clone(targets)
		}
	}
}

// WithConfiguration sets the build configuration (e.g. Debug).
func WithConfiguration(name string) Override {
	return func(o *Options) { o.Configuration = name }
}

// WithProperty sets a single MSBuild property.
func WithProperty(key, value string) Override {
	return func(o *Options) { o.Properties[key] = value }
}

// WithVerbosity sets the MSBuild verbosity level.
func WithVerbosity(level string) Override {
	return func(o *Options) { o.Verbosity = level }
}

// WithErrorOnFail toggles error propagation to the caller.
func WithErrorOnFail(v bool) Override {
	return func(o *Options) { o.ErrorOnFail = v }
}

// WithLogCommand toggles logging of the command line.
func WithLogCommand(v bool) Override {
	return func(o *Options) { o.LogCommand = v }
}

// WithStdout toggles forwarding of the child's standard output.
func WithStdout(v bool) Override {
	return func(o *Options) { o.Stdout = v }
}

// WithStderr toggles forwarding of the child's standard error.
func WithStderr(v bool) Override {
	return func(o *Options) { o.Stderr = v }
}

// LoadResult holds the parsed options and the discovered workspace root.
type LoadResult struct {
	Options *Options
	Root    string // directory containing .msbuildrunner; falls back to workspace
	Path    string // path of the file that was read, empty if none
}

// Load reads the .msbuildrunner file closest to workspace, walking upward.
// Values from the file are decoded over Default, so keys that are absent
// keep their defaults. If no file exists, Default is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRoot(workspace)
	if err != nil {
		// No config file anywhere above; use workspace as root.
		return &LoadResult{Options: Default(), Root: workspace}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	opts := Default()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if opts.Properties == nil {
		opts.Properties = map[string]string{}
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &LoadResult{Options: opts, Root: root, Path: path}, nil
}

// findRoot walks upward from dir looking for a directory containing FileName.
func findRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
