package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/gmahomarf/msbuild-runner/internal/config"
	"github.com/gmahomarf/msbuild-runner/internal/report"
	"github.com/gmahomarf/msbuild-runner/internal/workflow"
)

// --- build ---

func buildMain(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	bf := registerBuildFlags(fs)
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 10m)")
	logLevel := fs.String("log-level", "", "log level (default from config)")
	_ = fs.Parse(args)

	a, err := newApp(*logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := a.withTimeout(ctx, *timeoutFlag)
	defer cancel()

	result, err := a.engine.Build(ctx, fs.Args(), bf.overrides(fs)...)
	if result == nil {
		return fmt.Errorf("build: %w", err)
	}
	if err != nil {
		a.log.Warn(err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.RunResult); err != nil {
			return err
		}
	} else {
		fmt.Print(formatBuildCLI(result))
	}

	// Failures only change the exit status when they were surfaced.
	if result.Err != nil {
		os.Exit(1)
	}
	return nil
}

func formatBuildCLI(result *workflow.BuildResult) string {
	rr := result.RunResult
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if rr.Failed() || result.Err != nil {
		w("FAIL\n")
	} else {
		w("ok\n")
	}
	w("\n")

	for _, p := range rr.Projects {
		switch p.Status {
		case report.StatusPass:
			w("  %-40s ok\n", p.Project)
		case report.StatusFail:
			w("  %-40s FAIL (exit %d)\n", p.Project, p.ExitCode)
		case report.StatusError:
			w("  %-40s error\n", p.Project)
		case report.StatusSkipped:
			w("  %-40s -\n", p.Project)
		}
	}
	w("\n")
	w("Run: %s\n", rr.ID)

	return string(b)
}

// --- run ---

// runMain builds a single project through the asynchronous runner API and
// waits for its completion callback.
func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	bf := registerBuildFlags(fs)
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 10m)")
	logLevel := fs.String("log-level", "", "log level (default from config)")
	_ = fs.Parse(args)

	if fs.NArg() > 1 {
		return errors.New("run: at most one project may be given")
	}

	a, err := newApp(*logLevel)
	if err != nil {
		return err
	}

	projects, err := a.engine.ResolveProjects(fs.Args())
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := a.withTimeout(ctx, *timeoutFlag)
	defer cancel()

	ovs := append(bf.overrides(fs), config.WithProject(projects[0]))
	done := make(chan error, 1)
	if err := a.runner.Start(ctx, a.cfg, func(err error) { done <- err }, ovs...); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return <-done
}

// --- command ---

func commandMain(args []string) error {
	fs := flag.NewFlagSet("command", flag.ExitOnError)
	bf := registerBuildFlags(fs)
	_ = fs.Parse(args)

	a, err := newApp("")
	if err != nil {
		return err
	}

	cmds, err := a.engine.Preview(fs.Args(), bf.overrides(fs)...)
	if err != nil {
		return fmt.Errorf("command: %w", err)
	}
	for _, c := range cmds {
		fmt.Println(c)
	}
	return nil
}

// --- runs ---

func runsMain(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	_ = fs.Parse(args)

	a, err := newApp("")
	if err != nil {
		return err
	}
	if a.cfg.ReportDir == "" {
		return fmt.Errorf("runs: report_dir is not set in %s", config.FileName)
	}

	if fs.NArg() == 0 {
		ids, err := a.disk.List()
		if err != nil {
			return fmt.Errorf("runs: %w", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	result, err := a.store.Load(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
