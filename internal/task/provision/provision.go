// Package provision implements the steps that prepare a responder for
// dialing back: the mapping record, the callback key, and the pinned
// initiator host key.
package provision

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/tpodg/backchannel/internal/mapping"
	"github.com/tpodg/backchannel/internal/server"
	"github.com/tpodg/backchannel/internal/strutil"
	"github.com/tpodg/backchannel/internal/task"
	"github.com/tpodg/backchannel/internal/task/taskutil"
)

const TaskKey = "provision"

type Config struct {
	// Host and User form the mapping record written on the responder.
	Host string `yaml:"host"`
	User string `yaml:"user"`

	// PrivateKey is the PEM content of the callback key to install.
	PrivateKey string `yaml:"private_key"`

	// Paths on the responder, relative to its home directory.
	MappingPath    string `yaml:"mapping_path"`
	KeyPath        string `yaml:"key_path"`
	KnownHostsPath string `yaml:"known_hosts_path"`

	PinHostKey   bool     `yaml:"pin_host_key"`
	HostKeyGlobs []string `yaml:"host_key_globs"`
}

// Spec defines the responder provisioning task spec.
func Spec() task.Spec {
	return task.SpecFor(TaskKey, "provision.yaml", buildTasks)
}

func buildTasks(cfg Config) ([]task.Task, error) {
	record := mapping.Record{Host: cfg.Host, User: cfg.User}
	if err := mapping.Validate(record); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("provision: private key content is required")
	}
	if cfg.MappingPath == "" || cfg.KeyPath == "" {
		return nil, fmt.Errorf("provision: mapping and key paths are required")
	}

	tasks := []task.Task{
		&MappingTask{record: record, path: cfg.MappingPath},
		&KeyInstallTask{key: cfg.PrivateKey, path: cfg.KeyPath},
	}
	if cfg.PinHostKey {
		tasks = append(tasks, &HostKeyPinTask{
			path:  cfg.KnownHostsPath,
			globs: cfg.HostKeyGlobs,
		})
	}
	return tasks, nil
}

// MappingTask writes the dial-back mapping record.
type MappingTask struct {
	record mapping.Record
	path   string
}

func (t *MappingTask) Name() string {
	return fmt.Sprintf("mapping record: %s@%s", t.record.User, t.record.Host)
}

func (t *MappingTask) NeedsExecution(ctx context.Context, s server.Server) (bool, error) {
	output, missing, err := taskutil.ReadFileIfExists(ctx, s, t.path)
	if err != nil {
		return false, err
	}
	if missing {
		return true, nil
	}
	current, found, err := mapping.Parse(output)
	if err != nil {
		return false, err
	}
	return !found || current != t.record, nil
}

func (t *MappingTask) Execute(ctx context.Context, s server.Server) error {
	return writeRemoteFile(ctx, s, t.path, mapping.Format(t.record), false)
}

// KeyInstallTask copies the callback private key into the responder's
// SSH directory.
type KeyInstallTask struct {
	key  string
	path string
}

func (t *KeyInstallTask) Name() string {
	return fmt.Sprintf("callback key: %s", t.path)
}

func (t *KeyInstallTask) NeedsExecution(ctx context.Context, s server.Server) (bool, error) {
	output, missing, err := taskutil.ReadFileIfExists(ctx, s, t.path)
	if err != nil {
		return false, err
	}
	if missing {
		return true, nil
	}
	return strings.TrimSpace(output) != strings.TrimSpace(t.key), nil
}

func (t *KeyInstallTask) Execute(ctx context.Context, s server.Server) error {
	key := strings.TrimSpace(t.key) + "\n"
	return writeRemoteFile(ctx, s, t.path, key, true)
}

// HostKeyPinTask records the initiator's sshd host keys on the responder
// so the callback can verify instead of trusting blindly. Pins are
// additive: lines already present on the responder (for example from
// another provisioning workstation) are kept. Best-effort: when no host
// key is readable locally the step is skipped with a warning.
type HostKeyPinTask struct {
	path  string
	globs []string

	lines []string
	read  bool
}

func (t *HostKeyPinTask) Name() string {
	return fmt.Sprintf("pinned host key: %s", t.path)
}

func (t *HostKeyPinTask) NeedsExecution(ctx context.Context, s server.Server) (bool, error) {
	lines, err := t.pinLines()
	if err != nil {
		return false, err
	}
	if len(lines) == 0 {
		taskutil.Warnf("skipping %s because no local sshd host key is readable; the callback will not verify the host key.", t.Name())
		return false, nil
	}

	output, missing, err := taskutil.ReadFileIfExists(ctx, s, t.path)
	if err != nil {
		return false, err
	}
	if missing {
		return true, nil
	}
	existing, err := taskutil.LineSet(output)
	if err != nil {
		return false, err
	}
	for _, line := range lines {
		if _, ok := existing[line]; !ok {
			return true, nil
		}
	}
	return false, nil
}

func (t *HostKeyPinTask) Execute(ctx context.Context, s server.Server) error {
	lines, err := t.pinLines()
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	merged, err := t.mergedLines(ctx, s, lines)
	if err != nil {
		return err
	}
	content := strings.Join(merged, "\n") + "\n"
	return writeRemoteFile(ctx, s, t.path, content, true)
}

// mergedLines keeps the responder's existing pin lines, in order, and
// appends the local ones that are not yet present.
func (t *HostKeyPinTask) mergedLines(ctx context.Context, s server.Server, lines []string) ([]string, error) {
	output, missing, err := taskutil.ReadFileIfExists(ctx, s, t.path)
	if err != nil {
		return nil, err
	}

	var merged []string
	seen := make(map[string]struct{})
	if !missing {
		if err := taskutil.ScanLines(output, func(text string) {
			if strings.TrimSpace(text) == "" {
				return
			}
			if _, ok := seen[text]; ok {
				return
			}
			seen[text] = struct{}{}
			merged = append(merged, text)
		}); err != nil {
			return nil, err
		}
	}
	for _, line := range lines {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		merged = append(merged, line)
	}
	return merged, nil
}

func (t *HostKeyPinTask) pinLines() ([]string, error) {
	if t.read {
		return t.lines, nil
	}
	lines, err := CollectHostKeyLines(t.globs)
	if err != nil {
		return nil, err
	}
	t.lines = lines
	t.read = true
	return lines, nil
}

func writeRemoteFile(ctx context.Context, s server.Server, remotePath, content string, ensureDir bool) error {
	dir := ""
	if ensureDir {
		if d := path.Dir(remotePath); d != "." && d != "/" {
			dir = d
		}
	}
	script, err := renderWriteScript(dir, remotePath)
	if err != nil {
		return err
	}
	cmd := "sh -c " + strutil.ShellEscape(script)
	if _, err := s.ExecuteWithInput(ctx, cmd, strings.NewReader(content)); err != nil {
		return err
	}
	return nil
}
