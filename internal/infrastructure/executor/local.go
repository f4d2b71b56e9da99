// Package executor runs external programs and captures their output.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// LocalExecutor runs programs directly, without a shell in between.
type LocalExecutor struct {
	dir string
	env []string
}

// NewLocalExecutor builds a new executor. dir and env apply to every run;
// empty values inherit the current process's.
func NewLocalExecutor(dir string, env []string) *LocalExecutor {
	return &LocalExecutor{dir: dir, env: env}
}

// Execute implements ports.CommandExecutor. A non-zero exit is returned as an
// error with ExitCode and Stderr filled in.
func (e *LocalExecutor) Execute(ctx context.Context, name string, args ...string) (domain.ExecutionResult, error) {
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = e.dir
	if len(e.env) > 0 {
		c.Env = append(c.Environ(), e.env...)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	duration := time.Since(start).Milliseconds()

	result := domain.ExecutionResult{
		Ran:        err == nil,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: duration,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		result.Err = err
		return result, err
	}
	if err != nil {
		result.ExitCode = -1
		result.Err = err
		return result, err
	}
	return result, nil
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
