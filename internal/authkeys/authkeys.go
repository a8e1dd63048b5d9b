// Package authkeys maintains the tagged forced-command entry in the
// initiator's authorized_keys file.
package authkeys

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tpodg/backchannel/internal/config"
	"github.com/tpodg/backchannel/internal/keys"
	"github.com/tpodg/backchannel/internal/task/taskutil"
)

const (
	sshDirMode         = 0o700
	authorizedKeysMode = 0o600

	connectBinaryName = "backchannel"
	connectSubcommand = "connect"
)

type Writer struct {
	cfg     *config.Config
	manager *keys.Manager

	// overridable for tests
	lookPath   func(string) (string, error)
	executable func() (string, error)
}

func NewWriter(cfg *config.Config, manager *keys.Manager) *Writer {
	return &Writer{
		cfg:        cfg,
		manager:    manager,
		lookPath:   exec.LookPath,
		executable: os.Executable,
	}
}

// Configure ensures the credential exists and rewrites the authorized_keys
// file so it contains exactly one tagged entry forcing the connect handler.
// Untagged, non-blank lines are preserved byte-identical and in order.
func (w *Writer) Configure() (string, error) {
	pair, err := w.manager.Ensure()
	if err != nil {
		return "", err
	}
	pubLine, err := w.manager.PublicKeyLine(pair)
	if err != nil {
		return "", err
	}

	exe, err := w.resolveConnectExe()
	if err != nil {
		return "", err
	}

	entry := fmt.Sprintf("command=\"%s %s\",no-pty,no-port-forwarding,restrict %s %s",
		exe, connectSubcommand, pubLine, w.cfg.Tag)

	authPath, err := w.cfg.AuthorizedKeysPath()
	if err != nil {
		return "", err
	}
	if err := w.rewrite(authPath, entry); err != nil {
		return "", err
	}
	return exe, nil
}

// Entry returns the line Configure would install, for inspection.
func (w *Writer) Entry() (string, error) {
	pair, err := w.manager.Ensure()
	if err != nil {
		return "", err
	}
	pubLine, err := w.manager.PublicKeyLine(pair)
	if err != nil {
		return "", err
	}
	exe, err := w.resolveConnectExe()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("command=\"%s %s\",no-pty,no-port-forwarding,restrict %s %s",
		exe, connectSubcommand, pubLine, w.cfg.Tag), nil
}

func (w *Writer) resolveConnectExe() (string, error) {
	if path, err := w.lookPath(connectBinaryName); err == nil {
		return path, nil
	}
	path, err := w.executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate the %s binary: %w", connectBinaryName, err)
	}
	return path, nil
}

func (w *Writer) rewrite(authPath, entry string) error {
	var existing string
	data, err := os.ReadFile(authPath)
	switch {
	case err == nil:
		existing = string(data)
	case os.IsNotExist(err):
		existing = ""
	default:
		return fmt.Errorf("failed to read %q: %w", authPath, err)
	}

	var lines []string
	if err := taskutil.ScanLines(existing, func(line string) {
		if strings.TrimSpace(line) == "" {
			return
		}
		if strings.Contains(line, w.cfg.Tag) {
			return
		}
		lines = append(lines, line)
	}); err != nil {
		return fmt.Errorf("failed to scan %q: %w", authPath, err)
	}
	lines = append(lines, entry)

	dir := filepath.Dir(authPath)
	if err := os.MkdirAll(dir, sshDirMode); err != nil {
		return fmt.Errorf("failed to create %q: %w", dir, err)
	}

	// Write-then-rename so the file is never missing or partially written.
	tmp, err := os.CreateTemp(dir, ".authorized_keys-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	content := strings.Join(lines, "\n") + "\n"
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %q: %w", tmpPath, err)
	}
	if err := tmp.Chmod(authorizedKeysMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, authPath); err != nil {
		return fmt.Errorf("failed to replace %q: %w", authPath, err)
	}
	return nil
}
