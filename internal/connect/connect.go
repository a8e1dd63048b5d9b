// Package connect implements the forced-command handler that runs on the
// initiator when a provisioned responder dials back.
package connect

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/tpodg/backchannel/internal/dialog"
)

const defaultPayload = "echo 'No command received'"

// Confirmer asks the local user whether a payload may run.
type Confirmer interface {
	Confirm(ctx context.Context, payload string) (dialog.Decision, error)
}

// Notifier reports outcomes to the local desktop, best-effort.
type Notifier interface {
	Notify(ctx context.Context, summary, body string)
}

// PayloadRunner executes an approved payload via a shell.
type PayloadRunner interface {
	Run(ctx context.Context, payload string, stdin io.Reader, stdout, stderr io.Writer) (int, error)
}

// CommandSource supplies the payload the peer requested.
type CommandSource interface {
	OriginalCommand(fallback string) string
}

type Handler struct {
	logger  *slog.Logger
	source  CommandSource
	confirm Confirmer
	notify  Notifier
	runner  PayloadRunner

	stdin          io.Reader
	stdout, stderr io.Writer
}

func NewHandler(logger *slog.Logger, source CommandSource, confirm Confirmer, notify Notifier, runner PayloadRunner) *Handler {
	return &Handler{
		logger:  logger,
		source:  source,
		confirm: confirm,
		notify:  notify,
		runner:  runner,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// Handle processes one forced-command session: read the requested payload,
// ask for approval, and on approval execute it with the session's input
// stream attached. Denial and payload failure are benign outcomes; only a
// broken environment (such as a missing confirmation tool) is an error.
func (h *Handler) Handle(ctx context.Context) error {
	payload := h.source.OriginalCommand(defaultPayload)
	h.logger.Info("Incoming callback", "payload", payload)

	decision, err := h.confirm.Confirm(ctx, payload)
	if err != nil {
		return err
	}

	if decision != dialog.Approved {
		h.logger.Info("Action denied by user")
		h.notify.Notify(ctx, "SSH Backchannel", "Denied: "+payload)
		return nil
	}

	code, err := h.runner.Run(ctx, payload, h.stdin, h.stdout, h.stderr)
	if err != nil {
		h.logger.Error("Command failed", "error", err)
		h.notify.Notify(ctx, "SSH Backchannel", "Failed: "+payload)
		return nil
	}
	if code != 0 {
		h.logger.Info("Command exited non-zero", "code", code)
	}
	return nil
}
