package gitx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Runner provides an abstraction for executing external commands,
// primarily git, so plugins can be tested without touching real repositories.
type Runner interface {
	// Run executes name with args in dir and returns the captured result.
	// A non-zero exit code is reported through Result.ReturnCode, not an error.
	Run(ctx context.Context, dir, name string, args ...string) Result
}

// Result holds the outcome of a single command execution.
type Result struct {
	Cmd        []string
	Dir        string
	Stdout     string
	Stderr     string
	ReturnCode int
}

// Ok reports whether the command exited successfully.
func (r Result) Ok() bool {
	return r.ReturnCode == 0
}

// RealRunner implements Runner using os/exec.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes the command and captures stdout, stderr, and the exit code.
func (r *RealRunner) Run(ctx context.Context, dir, name string, args ...string) Result {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{
		Cmd: append([]string{name}, args...),
		Dir: dir,
	}

	err := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ReturnCode = exitErr.ExitCode()
		} else {
			// The command failed to start at all.
			res.ReturnCode = -1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}
	return res
}

// Format renders a command line for logging, quoting arguments that
// contain whitespace.
func Format(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if strings.ContainsAny(a, " \t") {
			parts = append(parts, `"`+a+`"`)
		} else {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}
