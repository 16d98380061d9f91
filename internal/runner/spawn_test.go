//go:build unix

package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmahomarf/msbuild-runner/internal/command"
	"github.com/gmahomarf/msbuild-runner/internal/config"
)

func newExecRunner(t *testing.T, argv ...string) (*Runner, *ExecSpawner, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	spawner := &ExecSpawner{Workspace: t.TempDir()}
	b := &fakeBuilder{cmd: command.Command{Executable: argv[0], Args: argv[1:]}}
	return New(b, spawner, logger), spawner, hook
}

func TestExecSpawner_Success(t *testing.T) {
	r, _, hook := newExecRunner(t, "echo", "hello")

	out, err := r.Run(context.Background(), config.Default(), config.WithStdout(true))
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out.Kind)
	assert.Contains(t, messages(hook), "hello")
}

func TestExecSpawner_NonZeroExit(t *testing.T) {
	r, _, hook := newExecRunner(t, "sh", "-c", "echo oops >&2; exit 3")

	out, err := r.Run(context.Background(), config.Default(), config.WithErrorOnFail(true))
	require.Error(t, err)
	assert.Equal(t, FailedWithCode, out.Kind)
	assert.Equal(t, 3, out.Code)
	assert.Contains(t, messages(hook), "oops", "stderr not forwarded")
}

func TestExecSpawner_BinaryNotFound(t *testing.T) {
	r, _, _ := newExecRunner(t, "nonexistent-msbuild-xyz-123")

	out, err := r.Run(context.Background(), config.Default(), config.WithErrorOnFail(true))
	require.Error(t, err)
	assert.Equal(t, FailedToSpawn, out.Kind)
	assert.Contains(t, err.Error(), "nonexistent-msbuild-xyz-123")
}

func TestExecSpawner_SignalIsProcessError(t *testing.T) {
	r, _, _ := newExecRunner(t, "sh", "-c", "kill -KILL $$")

	out, _ := r.Run(context.Background(), config.Default())
	assert.Equal(t, FailedToSpawn, out.Kind)
}

// A background process that inherits the output pipe must not keep the
// build running once the child itself has exited.
func TestExecSpawner_OrphanHoldingOutputDoesNotBlock(t *testing.T) {
	r, spawner, hook := newExecRunner(t, "sh", "-c", "echo started >&2; sleep 3 & exit 0")
	spawner.WaitDelay = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	begin := time.Now()
	out, err := r.Run(ctx, config.Default(), config.WithErrorOnFail(true))
	elapsed := time.Since(begin)

	require.NoError(t, err)
	assert.Less(t, elapsed, 2*time.Second, "Run outlived the context deadline")
	assert.Equal(t, Succeeded, out.Kind)
	assert.Equal(t, 0, out.Code)
	msgs := messages(hook)
	assert.Contains(t, msgs, "started")
	assert.Contains(t, msgs, color.CyanString("Build complete!"))
}

func TestExecSpawner_DeadlineStopsBuild(t *testing.T) {
	r, spawner, hook := newExecRunner(t, "sh", "-c", "sleep 10")
	spawner.WaitDelay = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	begin := time.Now()
	out, err := r.Run(ctx, config.Default(), config.WithErrorOnFail(true))

	require.Error(t, err)
	assert.Less(t, time.Since(begin), 5*time.Second)
	assert.Equal(t, FailedToSpawn, out.Kind)
	assert.Contains(t, messages(hook), color.RedString("Build failed!"))
}

func TestExecSpawner_WorkingDirWithinWorkspace(t *testing.T) {
	r, spawner, hook := newExecRunner(t, "pwd")
	sub := filepath.Join(spawner.Workspace, "src")
	require.NoError(t, os.Mkdir(sub, 0o755))

	opts := config.Default().With(config.WithStdout(true))
	opts.WorkingDir = "src"
	out, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, Succeeded, out.Kind)

	found := false
	for _, m := range messages(hook) {
		if strings.HasSuffix(m, "src") {
			found = true
		}
	}
	assert.True(t, found, "messages = %q, want a path ending in src", messages(hook))
}

func TestExecSpawner_SetWorkspaceWhileSpawning(t *testing.T) {
	r, spawner, _ := newExecRunner(t, "true")
	other := t.TempDir()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Run(context.Background(), config.Default())
		}()
		go func() {
			defer wg.Done()
			spawner.SetWorkspace(other)
		}()
	}
	wg.Wait()

	dir, err := spawner.resolveDir("")
	require.NoError(t, err)
	assert.Equal(t, other, dir)
}

func TestExitStatus(t *testing.T) {
	code, err := exitStatus(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = exitStatus(exec.ErrWaitDelay)
	assert.NoError(t, err)
	assert.Equal(t, 0, code)

	boom := errors.New("boom")
	code, err = exitStatus(boom)
	assert.Same(t, boom, err)
	assert.Equal(t, -1, code)
}

func TestResolveDir(t *testing.T) {
	s := &ExecSpawner{Workspace: "/work"}
	tests := []struct {
		cwd     string
		want    string
		wantErr bool
	}{
		{"", "/work", false},
		{"src", "/work/src", false},
		{"/work/src/app", "/work/src/app", false},
		{"..", "", true},
		{"../other", "", true},
		{"/tmp", "", true},
		{"..foo", "/work/..foo", false},
	}
	for _, tt := range tests {
		got, err := s.resolveDir(tt.cwd)
		if tt.wantErr {
			assert.ErrorContains(t, err, "outside workspace", "resolveDir(%q)", tt.cwd)
			continue
		}
		if assert.NoError(t, err, "resolveDir(%q)", tt.cwd) {
			assert.Equal(t, tt.want, got, "resolveDir(%q)", tt.cwd)
		}
	}
}
