package dialog

import (
	"context"
	"os"
	"os/exec"
)

const notifyTool = "notify-send"

// Notifier sends best-effort desktop notifications. A missing tool or a
// failed send is silently ignored.
type Notifier struct {
	desktopEnv []string

	lookPath func(string) (string, error)
}

func NewNotifier(desktopEnv []string) *Notifier {
	return &Notifier{
		desktopEnv: desktopEnv,
		lookPath:   exec.LookPath,
	}
}

func (n *Notifier) Notify(ctx context.Context, summary, body string) {
	tool, err := n.lookPath(notifyTool)
	if err != nil {
		return
	}
	cmd := exec.CommandContext(ctx, tool, summary, body)
	cmd.Env = append(os.Environ(), n.desktopEnv...)
	_ = cmd.Run()
}
