// Package callback opens the dial-back SSH connection from a responder to
// the initiator that is currently connected to it.
package callback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tpodg/backchannel/internal/config"
	"github.com/tpodg/backchannel/internal/mapping"
	"github.com/tpodg/backchannel/internal/server"
	"github.com/tpodg/backchannel/internal/session"
	"golang.org/x/term"
)

type Requester struct {
	cfg    *config.Config
	logger *slog.Logger
	env    *session.Environment

	stdin          io.Reader
	stdout, stderr io.Writer
	stdinIsTTY     func() bool
}

func NewRequester(cfg *config.Config, logger *slog.Logger, env *session.Environment) *Requester {
	return &Requester{
		cfg:    cfg,
		logger: logger,
		env:    env,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdinIsTTY: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Run dials back to the peer of the current SSH session and requests that
// it execute command. Stdin is forwarded when it is not a terminal.
func (r *Requester) Run(ctx context.Context, command string) error {
	peer, err := r.env.PeerAddress()
	if err != nil {
		return err
	}

	user, err := r.dialBackUser()
	if err != nil {
		return err
	}

	keyPath, err := r.cfg.CallbackKeyPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(keyPath); err != nil {
		return fmt.Errorf("callback key %q not found; has this host been provisioned? %w", keyPath, err)
	}

	noAgent := false
	opts := server.SSHOptions{
		UseAgent:         &noAgent,
		HandshakeTimeout: r.cfg.HandshakeTimeout,
	}

	pinPath, err := r.cfg.CallbackKnownHostsPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(pinPath); err == nil {
		opts.KnownHostsPath = pinPath
	} else {
		// No pinned host key from provisioning: connect unverified.
		opts.InsecureHostKey = true
		r.logger.Warn("No pinned host key, skipping host key verification", "path", pinPath)
	}

	srv := server.NewSSHServer("initiator", peer, server.User{
		Name:   user,
		SSHKey: keyPath,
	}, opts)

	var stdin io.Reader
	if !r.stdinIsTTY() {
		stdin = r.stdin
	}

	r.logger.Info("Dialing back", "user", user, "address", peer)
	return srv.Run(ctx, command, stdin, r.stdout, r.stderr)
}

func (r *Requester) dialBackUser() (string, error) {
	path, err := r.cfg.MappingPath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		record, found, err := mapping.Parse(string(data))
		if err != nil {
			return "", err
		}
		if found {
			return record.User, nil
		}
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to read mapping record %q: %w", path, err)
	}

	// No mapping record: fall back to this host's own username, which may
	// not match the initiator's.
	user, err := r.env.Username()
	if err != nil {
		return "", err
	}
	r.logger.Warn("No mapping record, falling back to local username", "user", user)
	return user, nil
}
