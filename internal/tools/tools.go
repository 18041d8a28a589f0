package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExternalToolError reports a collaborator process that could not be started
// or exited non-zero. The exit status and captured output are kept for
// diagnostics.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s %s failed with exit code %d: %v",
		e.Tool, strings.Join(e.Args, " "), e.ExitCode, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// Run invokes an external tool and blocks until it exits. Stdout and stderr
// are captured so a failing GDAL utility can be reported with its own words.
func Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &ExternalToolError{
			Tool:     name,
			Args:     args,
			ExitCode: code,
			Output:   string(out),
			Err:      err,
		}
	}
	return nil
}
