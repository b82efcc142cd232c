package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait keeps reading pipes after the classifier
// was killed, in case it left children holding them open.
const waitDelay = time.Second

// Result is what one classifier process left behind.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner classifies one image file in a fresh process.
type Runner interface {
	Run(ctx context.Context, imagePath string) (*Result, error)
}

// StartError means the process could not be launched at all.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start classifier: %v", e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

type Process struct {
	Path string
	Args []string
}

func NewProcess(path string, args ...string) *Process {
	return &Process{Path: path, Args: args}
}

// Run executes `<path> <args...> <imagePath>`. A non-zero exit is reported in
// the Result, not as an error.
func (p *Process) Run(ctx context.Context, imagePath string) (*Result, error) {
	args := append(append([]string{}, p.Args...), imagePath)
	cmd := exec.CommandContext(ctx, p.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Err: err}
	}

	err := cmd.Wait()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("classifier interrupted: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("classifier failed: %w", err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}
