// Package runner executes external commands on behalf of the provisioner.
// Every shell-out in the codebase goes through the Runner interface so that
// callers can be tested without touching the host.
package runner

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

// stopGracePeriod is how long a cancelled command may keep running before
// it is forcibly killed. Package managers get a moment to release locks.
const stopGracePeriod = 2 * time.Second

// maxOutputBytes caps the combined output captured per command.
const maxOutputBytes = 64 * 1024

// truncMarker replaces output that was dropped at the cap.
const truncMarker = "\n...[truncated]"

// Spec describes one external command invocation.
type Spec struct {
	// Name is the command to run, resolved via PATH unless absolute.
	Name string

	// Args are the command arguments.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds KEY=VALUE pairs appended to the inherited environment.
	Env []string

	// User, when non-empty, runs the command as that user via sudo.
	// Env pairs are passed through sudo as command-line assignments.
	User string
}

// Result holds the outcome of a completed command.
type Result struct {
	// ExitCode is the process exit code, or -1 if the process never ran.
	ExitCode int

	// Output is the combined stdout and stderr, truncated at maxOutputBytes.
	Output string

	// Duration is the wall-clock execution time.
	Duration time.Duration
}

// Runner abstracts command execution for testability.
type Runner interface {
	// Run executes the command described by spec and waits for completion.
	// A non-zero exit yields a non-nil error alongside the populated Result.
	Run(ctx context.Context, spec Spec) (Result, error)

	// LookPath reports the absolute path of an executable, or an error if
	// it is not on PATH.
	LookPath(name string) (string, error)
}

// execRunner implements Runner using os/exec.
type execRunner struct {
	logger *slog.Logger
}

// New returns a Runner backed by os/exec.
func New(logger *slog.Logger) Runner {
	return &execRunner{logger: logger.With("component", "runner")}
}

// buildCommand resolves the effective command line, wrapping it in sudo when
// spec.User names a different user.
func buildCommand(spec Spec) (string, []string) {
	if spec.User == "" {
		return spec.Name, spec.Args
	}
	args := []string{"-u", spec.User, "-H"}
	args = append(args, spec.Env...)
	args = append(args, spec.Name)
	args = append(args, spec.Args...)
	return "sudo", args
}

func (r *execRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	name, args := buildCommand(spec)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = stopGracePeriod
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 && spec.User == "" {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	w := &limitedWriter{max: maxOutputBytes}
	cmd.Stdout = w
	cmd.Stderr = w

	start := time.Now()
	runErr := cmd.Run()

	res := Result{
		Output:   w.contents(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		r.logger.Debug("command failed",
			"cmd", spec.Name,
			"args", strings.Join(spec.Args, " "),
			"exit_code", res.ExitCode,
			"duration", res.Duration,
			"output", res.Output,
		)
		return res, fmt.Errorf("runner: %s: %w", spec.Name, runErr)
	}

	r.logger.Debug("command completed",
		"cmd", spec.Name,
		"args", strings.Join(spec.Args, " "),
		"duration", res.Duration,
	)
	return res, nil
}

func (r *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// LastLine returns the final non-empty line of command output, for folding
// into error messages without dragging the whole transcript along.
func LastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// limitedWriter keeps at most max bytes of combined command output; the
// rest is discarded so a chatty child cannot balloon memory.
type limitedWriter struct {
	buf bytes.Buffer
	max int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if room := w.max - w.buf.Len(); room > 0 {
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		w.buf.Write(chunk)
	}
	// Report the full length so the child never blocks on a short write.
	return len(p), nil
}

// contents returns the captured output, marked when the cap was hit.
func (w *limitedWriter) contents() string {
	if w.buf.Len() >= w.max {
		return w.buf.String() + truncMarker
	}
	return w.buf.String()
}
