// Package shellrun executes a payload via a shell. The payload is run
// exactly as requested: the trust boundary is the forced-command
// restriction and the confirmation dialog, not input sanitization.
package shellrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type Runner struct{}

func New() *Runner {
	return &Runner{}
}

// Run parses payload as a POSIX shell program and executes it with the
// given streams attached. Input is consumed until exhausted; cancelling
// the context kills whatever the payload spawned. The exit status of the
// payload is returned; err is non-nil only for parse or setup failures.
func (r *Runner) Run(ctx context.Context, payload string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(payload), "payload")
	if err != nil {
		return 1, fmt.Errorf("failed to parse payload: %w", err)
	}

	shell, err := interp.New(
		interp.StdIO(stdin, stdout, stderr),
		interp.Env(expand.ListEnviron(os.Environ()...)),
	)
	if err != nil {
		return 1, fmt.Errorf("failed to set up shell: %w", err)
	}

	if err := shell.Run(ctx, prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return int(status), nil
		}
		return 1, err
	}
	return 0, nil
}
