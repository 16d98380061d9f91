package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SpawnOptions controls how a child process is started.
type SpawnOptions struct {
	Dir    string // working directory, empty for the spawner's default
	Stdout bool   // expose the child's standard output
	Stderr bool   // expose the child's standard error
}

// Process is a started child process.
type Process interface {
	// Stdout returns the child's standard output, or nil if it was not
	// requested. It must be read to EOF concurrently with Wait; the stream
	// ends once Wait has returned.
	Stdout() io.Reader
	// Stderr is like Stdout for standard error.
	Stderr() io.Reader
	// Wait blocks until the process ends. A nil error means the process
	// exited normally with code; a non-nil error means it failed at the
	// OS level and code is meaningless.
	Wait() (code int, err error)
}

// Spawner starts external processes.
type Spawner interface {
	Spawn(ctx context.Context, name string, args []string, opts SpawnOptions) (Process, error)
}

// ExecSpawner starts processes with os/exec. Working directories are
// resolved relative to Workspace and must remain within it.
type ExecSpawner struct {
	// Workspace must not be assigned once the spawner is in use; call
	// SetWorkspace instead.
	Workspace string
	// WaitDelay bounds how long Wait waits for output pipes after the
	// process has exited or been signalled. Zero means 5 seconds.
	WaitDelay time.Duration

	mu sync.RWMutex
}

// SetWorkspace moves the workspace boundary. It is safe to call while
// other goroutines spawn processes.
func (s *ExecSpawner) SetWorkspace(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Workspace = dir
}

func (s *ExecSpawner) workspace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Workspace
}

// Spawn starts name with args. Errors returned here mean nothing was started.
//
// Output is handed to exec as io.Pipe writers, so the copying belongs to
// cmd.Wait and is cut off after WaitDelay even when a grandchild (such as a
// reused MSBuild node) keeps the OS pipe open.
func (s *ExecSpawner) Spawn(ctx context.Context, name string, args []string, opts SpawnOptions) (Process, error) {
	dir, err := s.resolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = s.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	setupProcessGroup(cmd)

	p := &execProcess{done: make(chan struct{})}
	var writers []*io.PipeWriter
	if opts.Stdout {
		pr, pw := io.Pipe()
		cmd.Stdout, p.stdout = pw, pr
		writers = append(writers, pw)
	}
	if opts.Stderr {
		pr, pw := io.Pipe()
		cmd.Stderr, p.stderr = pw, pr
		writers = append(writers, pw)
	}

	if err := cmd.Start(); err != nil {
		for _, w := range writers {
			_ = w.Close()
		}
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}

	go func() {
		p.code, p.err = exitStatus(cmd.Wait())
		for _, w := range writers {
			_ = w.Close()
		}
		close(p.done)
	}()
	return p, nil
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (s *ExecSpawner) resolveDir(cwd string) (string, error) {
	workspace := s.workspace()
	if cwd == "" {
		return workspace, nil
	}
	if workspace == "" {
		return cwd, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(workspace, cwd))
	}

	rel, err := filepath.Rel(workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving working dir: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("working dir %q is outside workspace %q", cwd, workspace)
	}
	return dir, nil
}

type execProcess struct {
	stdout io.Reader
	stderr io.Reader

	done chan struct{} // closed once cmd.Wait has returned
	code int
	err  error
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Wait() (int, error) {
	<-p.done
	return p.code, p.err
}

// exitStatus maps the result of cmd.Wait to an exit code or an OS-level error.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	// The process exited 0 but something else still held its output open.
	if errors.Is(err, exec.ErrWaitDelay) {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ExitCode is -1 when the process was terminated by a signal.
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
	}
	return -1, err
}
