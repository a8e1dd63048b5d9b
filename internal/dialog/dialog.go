// Package dialog asks the local user to approve a requested command via a
// GUI confirmation tool, and reports outcomes via desktop notifications.
// Both tools are external programs; only an explicit affirmative answer
// counts as approval.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	confirmTool = "zenity"
	dialogTitle = "SSH Backchannel"
	dialogWidth = "450"

	// Slack on top of the dialog's own timeout before the process is killed.
	timeoutSlack = 5 * time.Second
)

// ErrNoConfirmTool is returned when the confirmation tool is not installed.
var ErrNoConfirmTool = errors.New("confirmation tool not found: " + confirmTool)

type Decision int

const (
	Denied Decision = iota
	Approved
)

type Confirmer struct {
	timeout time.Duration
	// desktopEnv is appended to the tool's environment so the dialog can
	// render from a non-interactive SSH session.
	desktopEnv []string

	lookPath func(string) (string, error)
}

func NewConfirmer(timeout time.Duration, desktopEnv []string) *Confirmer {
	return &Confirmer{
		timeout:    timeout,
		desktopEnv: desktopEnv,
		lookPath:   exec.LookPath,
	}
}

// Confirm shows the requested payload to the local user and waits for an
// answer. Anything other than an explicit yes, including the dialog timing
// out, is a denial.
func (c *Confirmer) Confirm(ctx context.Context, payload string) (Decision, error) {
	tool, err := c.lookPath(confirmTool)
	if err != nil {
		return Denied, ErrNoConfirmTool
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout+timeoutSlack)
	defer cancel()

	// zenity treats --timeout=0 as no timeout, so never pass less than 1.
	seconds := int(c.timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	cmd := exec.CommandContext(ctx, tool,
		"--question",
		"--title="+dialogTitle,
		fmt.Sprintf("--text=A remote server wants to run:\n\n$ %s", payload),
		fmt.Sprintf("--timeout=%d", seconds),
		"--width="+dialogWidth,
	)
	cmd.Env = append(os.Environ(), c.desktopEnv...)

	err = cmd.Run()
	if err == nil {
		return Approved, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Denied, nil
	}
	return Denied, fmt.Errorf("failed to run %s: %w", confirmTool, err)
}
