package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// PathPlaceholder is replaced with the temp file path in Optimizer.Arguments.
const PathPlaceholder = "%path%"

// DefaultOptimizerArguments passes the file path as the only argument.
const DefaultOptimizerArguments = PathPlaceholder

// DefaultOptimizerTimeout bounds a single optimizer run.
const DefaultOptimizerTimeout = 30 * time.Second

// Optimizer runs an external program that rewrites a PNG file in place,
// e.g. optipng or pngcrush.
type Optimizer struct {
	Command string
	// Arguments is a space separated template; PathPlaceholder is replaced
	// with the file to optimize. Empty means just the path.
	Arguments string
	Timeout   time.Duration
	// TempDir is where the working copy is written; empty means os.TempDir().
	TempDir string
	Logger  *slog.Logger
}

// Enabled reports whether a command is configured.
func (o *Optimizer) Enabled() bool {
	return o != nil && strings.TrimSpace(o.Command) != ""
}

func (o *Optimizer) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// args expands the argument template for path.
func (o *Optimizer) args(path string) []string {
	fields := strings.Fields(o.Arguments)
	if len(fields) == 0 {
		return []string{path}
	}
	args := make([]string, len(fields))
	for i, f := range fields {
		f = strings.Trim(f, `"'`)
		args[i] = strings.ReplaceAll(f, PathPlaceholder, path)
	}
	return args
}

// Optimize writes data to a private temp file, runs the optimizer on it and
// returns the rewritten bytes. The temp file is always removed. Failures are
// returned as *OptimizerError; callers keep their original bytes.
func (o *Optimizer) Optimize(ctx context.Context, data []byte) ([]byte, error) {
	if !o.Enabled() {
		return nil, &OptimizerError{Err: errors.New("no optimizer command configured")}
	}

	tmp, err := os.CreateTemp(o.TempDir, "capture-optimize-*.png")
	if err != nil {
		return nil, &OptimizerError{Command: o.Command, Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	path := tmp.Name()
	defer os.Remove(path)

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, &OptimizerError{Command: o.Command, Err: fmt.Errorf("failed to write temp file: %w", err)}
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultOptimizerTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.Command, o.args(path)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	o.logger().Debug("optimizer finished",
		"command", o.Command,
		"elapsed", time.Since(start),
		"stdout", strings.TrimSpace(stdout.String()),
		"stderr", strings.TrimSpace(stderr.String()))

	if runErr != nil {
		oe := &OptimizerError{Command: o.Command, Stderr: strings.TrimSpace(stderr.String()), Err: runErr}
		if ctx.Err() != nil {
			oe.Err = fmt.Errorf("timed out after %s: %w", timeout, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			oe.ExitCode = exitErr.ExitCode()
		}
		return nil, oe
	}

	optimized, err := os.ReadFile(path)
	if err != nil {
		return nil, &OptimizerError{Command: o.Command, Err: fmt.Errorf("failed to read optimized file: %w", err)}
	}
	if len(optimized) == 0 {
		return nil, &OptimizerError{Command: o.Command, Err: errors.New("optimizer produced an empty file")}
	}
	return optimized, nil
}
