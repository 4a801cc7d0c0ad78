// Package runner executes the external sandbox engine with workspace
// bounds, a timeout, and output size limits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes engine commands within a workspace boundary.
type Runner struct {
	Workspace string
	Timeout   time.Duration
	MaxOutput int // bytes, per stream
	Env       []string
	Logger    *zap.Logger // nil disables logging
}

// Command describes one engine invocation.
type Command struct {
	Argv  []string // binary resolved via PATH, then arguments
	Dir   string   // relative to the workspace; must stay within it
	Stdin []byte   // written to the process's standard input
}

// Run executes cmd. A non-zero exit is reported in the result, not as
// an error; errors are reserved for commands that could not be started
// or were killed by the timeout.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.resolveDir(cmd.Dir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	runID := uuid.New().String()
	log := r.logger().With(zap.String("run_id", runID), zap.Strings("argv", cmd.Argv))

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = dir
	if len(r.Env) > 0 {
		c.Env = append(c.Environ(), r.Env...)
	}
	c.Stdin = bytes.NewReader(cmd.Stdin)

	stdout := &limitWriter{buf: &bytes.Buffer{}, limit: r.MaxOutput}
	stderr := &limitWriter{buf: &bytes.Buffer{}, limit: r.MaxOutput}
	c.Stdout = stdout
	c.Stderr = stderr

	start := time.Now()
	runErr := c.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		log.Warn("engine timed out", zap.Duration("timeout", r.Timeout))
		return nil, fmt.Errorf("%s timed out after %s", cmd.Argv[0], r.Timeout)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("executing %s: %w", cmd.Argv[0], runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	res := &Result{
		RunID:           runID,
		ExitCode:        exitCode,
		Stdout:          stdout.buf.Bytes(),
		Stderr:          stderr.buf.Bytes(),
		StdoutTruncated: stdout.dropped(),
		StderrTruncated: stderr.dropped(),
		Elapsed:         elapsed,
	}
	log.Debug("engine finished",
		zap.Int("exit_code", res.ExitCode),
		zap.Int("stdout_bytes", len(res.Stdout)),
		zap.Bool("stdout_truncated", res.StdoutTruncated),
		zap.Bool("stderr_truncated", res.StderrTruncated),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// resolveDir resolves dir relative to the workspace and validates it
// stays within the workspace boundary.
func (r *Runner) resolveDir(dir string) (string, error) {
	if dir == "" {
		return r.Workspace, nil
	}

	resolved := filepath.Clean(dir)
	if !filepath.IsAbs(dir) {
		resolved = filepath.Join(r.Workspace, dir)
	}

	rel, err := filepath.Rel(r.Workspace, resolved)
	if err != nil {
		return "", fmt.Errorf("resolving dir: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dir %q is outside workspace %q", dir, r.Workspace)
	}
	return resolved, nil
}

// limitWriter keeps up to limit bytes in buf and discards the rest while
// reporting every write as complete. written counts every byte offered.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	written int64
}

// dropped reports whether any output was discarded.
func (w *limitWriter) dropped() bool {
	return w.written > int64(w.buf.Len())
}

func (w *limitWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if room := w.limit - w.buf.Len(); room < len(p) {
		if room > 0 {
			w.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return w.buf.Write(p)
}
