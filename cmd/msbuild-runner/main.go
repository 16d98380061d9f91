// Command msbuild-runner builds .NET solutions and projects with MSBuild.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	msbuildrunner "github.com/gmahomarf/msbuild-runner"
	"github.com/gmahomarf/msbuild-runner/internal/command"
	"github.com/gmahomarf/msbuild-runner/internal/config"
	"github.com/gmahomarf/msbuild-runner/internal/metrics"
	"github.com/gmahomarf/msbuild-runner/internal/report"
	"github.com/gmahomarf/msbuild-runner/internal/runner"
	"github.com/gmahomarf/msbuild-runner/internal/workflow"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("msbuild-runner: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "build":
		err = buildMain(args)
	case "run":
		err = runMain(args)
	case "command":
		err = commandMain(args)
	case "runs":
		err = runsMain(args)
	case "serve":
		err = serveMain(args)
	case "version":
		fmt.Println(msbuildrunner.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "msbuild-runner: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: msbuild-runner <command> [flags] [projects]

Commands:
  build       Build projects one after another and report each result
  run         Build a single project and exit with its result
  command     Print the msbuild command lines without running them
  runs        List stored runs, or print one as JSON
  serve       Start the MCP server
  version     Print the version
  help        Show this help

Use "msbuild-runner <command> -h" for command-specific flags.`)
}

// app wires the collaborators shared by every command.
type app struct {
	log     *logrus.Logger
	cfg     *config.Options
	spawner *runner.ExecSpawner
	builder *command.Builder
	metrics *metrics.Metrics
	disk    *report.DiskStore
	store   *report.LRUStore
	runner  *runner.Runner
	engine  *workflow.Engine
}

func newApp(logLevel string) (*app, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Options

	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	logger := setupLogger(logLevel)
	if loaded.Path != "" {
		logger.Debugf("using config %s", loaded.Path)
	}

	reportDir := cfg.ReportDir
	if reportDir != "" && !filepath.IsAbs(reportDir) {
		reportDir = filepath.Join(loaded.Root, reportDir)
	}

	a := &app{
		log:     logger,
		cfg:     cfg,
		spawner: &runner.ExecSpawner{Workspace: loaded.Root},
		builder: command.NewBuilder(),
		metrics: metrics.New(nil),
		disk:    report.NewDiskStore(reportDir),
	}
	a.store = report.NewLRUStore(5, a.disk)
	a.runner = runner.New(a.builder, a.spawner, logger, runner.WithObserver(a.metrics))
	a.engine = &workflow.Engine{
		Config:    cfg,
		Runner:    a.runner,
		Builder:   a.builder,
		Store:     a.store,
		Workspace: loaded.Root,
	}
	return a, nil
}

// withTimeout applies override, or the configured timeout when override is zero.
func (a *app) withTimeout(ctx context.Context, override time.Duration) (context.Context, context.CancelFunc) {
	d := a.cfg.Timeout()
	if override > 0 {
		d = override
	}
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// propertyFlag collects repeated -p Key=Value flags.
type propertyFlag map[string]string

func (p propertyFlag) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (p propertyFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("property %q must be Key=Value", s)
	}
	p[k] = v
	return nil
}

// buildFlags are the flags shared by build, run and command.
type buildFlags struct {
	targets       *string
	configuration *string
	verbosity     *string
	properties    propertyFlag
	errorOnFail   *bool
	logCommand    *bool
	stdout        *bool
	stderr        *bool
}

func registerBuildFlags(fs *flag.FlagSet) *buildFlags {
	bf := &buildFlags{
		targets:       fs.String("t", "", "comma-separated targets (e.g. Clean,Build)"),
		configuration: fs.String("c", "", "build configuration (e.g. Debug)"),
		verbosity:     fs.String("v", "", "msbuild verbosity: quiet, minimal, normal, detailed, diagnostic"),
		properties:    propertyFlag{},
		errorOnFail:   fs.Bool("error-on-fail", false, "fail on the first failed build"),
		logCommand:    fs.Bool("log-command", false, "log the msbuild command before running it"),
		stdout:        fs.Bool("stdout", false, "forward msbuild standard output to the log"),
		stderr:        fs.Bool("stderr", true, "forward msbuild standard error to the log"),
	}
	fs.Var(bf.properties, "p", "msbuild property Key=Value (repeatable)")
	return bf
}

// overrides returns the options changed on the command line. Boolean flags
// only override the config file when they were given explicitly.
func (bf *buildFlags) overrides(fs *flag.FlagSet) []config.Override {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var ovs []config.Override
	if *bf.targets != "" {
		ovs = append(ovs, config.WithTargets(strings.Split(*bf.targets, ",")...))
	}
	if *bf.configuration != "" {
		ovs = append(ovs, config.WithConfiguration(*bf.configuration))
	}
	if *bf.verbosity != "" {
		ovs = append(ovs, config.WithVerbosity(*bf.verbosity))
	}
	for k, v := range bf.properties {
		ovs = append(ovs, config.WithProperty(k, v))
	}
	if set["error-on-fail"] {
		ovs = append(ovs, config.WithErrorOnFail(*bf.errorOnFail))
	}
	if set["log-command"] {
		ovs = append(ovs, config.WithLogCommand(*bf.logCommand))
	}
	if set["stdout"] {
		ovs = append(ovs, config.WithStdout(*bf.stdout))
	}
	if set["stderr"] {
		ovs = append(ovs, config.WithStderr(*bf.stderr))
	}
	return ovs
}
