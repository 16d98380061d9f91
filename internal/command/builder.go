package command

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gmahomarf/msbuild-runner/internal/config"
)

// Builder constructs MSBuild command lines. It is pure apart from the
// executable lookup performed by its Finder.
type Builder struct {
	Finder Finder
}

// NewBuilder returns a Builder that looks up executables on the host.
func NewBuilder() *Builder {
	return &Builder{}
}

// Construct returns the executable and arguments for one build of opts.
func (b *Builder) Construct(opts *config.Options) (Command, error) {
	exe, prefix, err := b.Finder.Find(opts)
	if err != nil {
		return Command{}, fmt.Errorf("locating msbuild: %w", err)
	}
	return Command{
		Executable: exe,
		Args:       append(prefix, Arguments(opts)...),
	}, nil
}

// Arguments returns the MSBuild switches for opts, in a stable order:
// project, target, verbosity, toolsversion, switches, properties, custom args.
func Arguments(opts *config.Options) []string {
	var args []string

	if opts.Project != "" {
		args = append(args, opts.Project)
	}
	if len(opts.Targets) > 0 {
		args = append(args, "/target:"+strings.Join(opts.Targets, ";"))
	}
	if opts.Verbosity != "" {
		args = append(args, "/verbosity:"+opts.Verbosity)
	}
	if isNumericVersion(opts.ToolsVersion) {
		args = append(args, "/toolsversion:"+opts.ToolsVersion)
	}
	if opts.NoLogo {
		args = append(args, "/nologo")
	}
	switch {
	case opts.MaxCPUCount == 0:
		args = append(args, "/maxcpucount")
	case opts.MaxCPUCount > 0:
		args = append(args, "/maxcpucount:"+strconv.Itoa(opts.MaxCPUCount))
	}
	if !opts.NodeReuse {
		args = append(args, "/nodeReuse:False")
	}
	if opts.FileLoggerParameters != "" {
		args = append(args, "/flp:"+opts.FileLoggerParameters)
	}
	if opts.ConsoleLoggerParameters != "" {
		args = append(args, "/clp:"+opts.ConsoleLoggerParameters)
	}
	if opts.LoggerParameters != "" {
		args = append(args, "/logger:"+opts.LoggerParameters)
	}

	for _, kv := range properties(opts) {
		args = append(args, "/property:"+kv[0]+"="+kv[1])
	}

	return append(args, opts.CustomArgs...)
}

// properties returns the /property pairs: Configuration, Platform and the
// publish settings first, then user properties sorted by key. User values
// win over the derived ones.
func properties(opts *config.Options) [][2]string {
	var derived [][2]string
	if opts.Configuration != "" {
		derived = append(derived, [2]string{"Configuration", opts.Configuration})
	}
	if opts.SolutionPlatform != "" {
		derived = append(derived, [2]string{"Platform", opts.SolutionPlatform})
	}
	if opts.PublishDirectory != "" {
		derived = append(derived,
			[2]string{"DeployOnBuild", "true"},
			[2]string{"DeployDefaultTarget", "WebPublish"},
			[2]string{"WebPublishMethod", "FileSystem"},
			[2]string{"DeleteExistingFiles", "true"},
			[2]string{"publishUrl", opts.PublishDirectory},
		)
	}

	out := make([][2]string, 0, len(derived)+len(opts.Properties))
	for _, kv := range derived {
		if _, ok := opts.Properties[kv[0]]; !ok {
			out = append(out, kv)
		}
	}

	keys := make([]string, 0, len(opts.Properties))
	for k := range opts.Properties {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, [2]string{k, opts.Properties[k]})
	}
	return out
}

func isNumericVersion(v string) bool {
	if v == "" {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}
