package authkeys

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tpodg/backchannel/internal/config"
	"github.com/tpodg/backchannel/internal/keys"
)

const testTag = "# backchannel-key"

func testWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	tmpDir := t.TempDir()
	authPath := filepath.Join(tmpDir, "ssh", "authorized_keys")
	cfg := &config.Config{
		ConfigDir:      filepath.Join(tmpDir, "backchannel"),
		KeyName:        "id_ed25519",
		AuthorizedKeys: authPath,
		Tag:            testTag,
	}
	w := NewWriter(cfg, keys.NewManager(cfg))
	w.lookPath = func(string) (string, error) { return "", errors.New("not in PATH") }
	w.executable = func() (string, error) { return "/usr/local/bin/backchannel", nil }
	return w, authPath
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func countTagged(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.Contains(line, testTag) {
			n++
		}
	}
	return n
}

func TestConfigureFreshFile(t *testing.T) {
	w, authPath := testWriter(t)

	exe, err := w.Configure()
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if exe != "/usr/local/bin/backchannel" {
		t.Fatalf("unexpected connect executable: %q", exe)
	}

	lines := readLines(t, authPath)
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line, got %d", len(lines))
	}
	entry := lines[0]
	for _, want := range []string{
		`command="/usr/local/bin/backchannel connect"`,
		"no-pty",
		"no-port-forwarding",
		"restrict",
		"ssh-ed25519 ",
		testTag,
	} {
		if !strings.Contains(entry, want) {
			t.Fatalf("expected entry to contain %q, got %q", want, entry)
		}
	}

	info, err := os.Stat(authPath)
	if err != nil {
		t.Fatalf("stat authorized_keys: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %o", info.Mode().Perm())
	}

	dirInfo, err := os.Stat(filepath.Dir(authPath))
	if err != nil {
		t.Fatalf("stat ssh dir: %v", err)
	}
	if dirInfo.Mode().Perm() != 0o700 {
		t.Fatalf("expected dir mode 0700, got %o", dirInfo.Mode().Perm())
	}
}

func TestConfigureIdempotent(t *testing.T) {
	w, authPath := testWriter(t)

	for i := 0; i < 3; i++ {
		if _, err := w.Configure(); err != nil {
			t.Fatalf("Configure run %d failed: %v", i+1, err)
		}
	}

	lines := readLines(t, authPath)
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line after re-runs, got %d", len(lines))
	}
	if countTagged(lines) != 1 {
		t.Fatalf("expected exactly one tagged entry, got %d", countTagged(lines))
	}
}

func TestConfigurePreservesForeignEntries(t *testing.T) {
	w, authPath := testWriter(t)

	foreign := []string{
		"ssh-rsa AAAAB3NzaFOREIGN user@elsewhere",
		`command="/usr/bin/other" ssh-ed25519 AAAAC3OTHER other@host`,
	}
	stale := "ssh-ed25519 AAAAC3STALE stale " + testTag
	initial := foreign[0] + "\n\n" + stale + "\n" + foreign[1] + "\n\n"
	if err := os.MkdirAll(filepath.Dir(authPath), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(authPath, []byte(initial), 0o600); err != nil {
		t.Fatalf("seed authorized_keys: %v", err)
	}

	if _, err := w.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	lines := readLines(t, authPath)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (2 foreign + 1 tagged), got %d: %v", len(lines), lines)
	}
	if lines[0] != foreign[0] || lines[1] != foreign[1] {
		t.Fatalf("expected foreign entries preserved in order, got %v", lines[:2])
	}
	if countTagged(lines) != 1 {
		t.Fatalf("expected exactly one tagged entry, got %d", countTagged(lines))
	}
	if strings.Contains(lines[2], "AAAAC3STALE") {
		t.Fatal("expected stale tagged entry to be replaced")
	}
}

func TestConfigureMissingFileTreatedAsEmpty(t *testing.T) {
	w, authPath := testWriter(t)

	if _, err := os.Stat(authPath); !os.IsNotExist(err) {
		t.Fatalf("expected file to be absent, got %v", err)
	}
	if _, err := w.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if len(readLines(t, authPath)) != 1 {
		t.Fatal("expected single entry in fresh file")
	}
}
