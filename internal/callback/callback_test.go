package callback

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tpodg/backchannel/internal/config"
	"github.com/tpodg/backchannel/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func fakeSession(vars map[string]string) *session.Environment {
	return session.NewWithLookup(func(key string) (string, bool) {
		value, ok := vars[key]
		return value, ok
	})
}

func testRequester(t *testing.T, vars map[string]string) *Requester {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := &config.Config{
		RemoteMappingPath:    ".backchannel",
		RemoteKeyPath:        ".ssh/id_backchannel",
		RemoteKnownHostsPath: ".ssh/backchannel_known_hosts",
	}
	return NewRequester(cfg, discardLogger(), fakeSession(vars))
}

func TestRunRequiresSSHSession(t *testing.T) {
	r := testRequester(t, map[string]string{})
	err := r.Run(context.Background(), "echo hi")
	if err == nil {
		t.Fatal("expected error when SSH_CLIENT is absent")
	}
}

func TestRunRequiresProvisionedKey(t *testing.T) {
	r := testRequester(t, map[string]string{
		"SSH_CLIENT": "192.0.2.10 51234 22",
		"USER":       "remote",
	})
	err := r.Run(context.Background(), "echo hi")
	if err == nil {
		t.Fatal("expected error when the callback key is missing")
	}
}

func TestDialBackUser(t *testing.T) {
	t.Run("mapping record wins", func(t *testing.T) {
		r := testRequester(t, map[string]string{"USER": "remote"})
		home := os.Getenv("HOME")
		record := "BACKCHANNEL_HOST=ws\nBACKCHANNEL_USER=alice\n"
		if err := os.WriteFile(filepath.Join(home, ".backchannel"), []byte(record), 0600); err != nil {
			t.Fatalf("write mapping: %v", err)
		}

		user, err := r.dialBackUser()
		if err != nil {
			t.Fatalf("dialBackUser failed: %v", err)
		}
		if user != "alice" {
			t.Fatalf("expected alice, got %q", user)
		}
	})

	t.Run("legacy record", func(t *testing.T) {
		r := testRequester(t, map[string]string{"USER": "remote"})
		home := os.Getenv("HOME")
		if err := os.WriteFile(filepath.Join(home, ".backchannel"), []byte("ws:bob\n"), 0600); err != nil {
			t.Fatalf("write mapping: %v", err)
		}

		user, err := r.dialBackUser()
		if err != nil {
			t.Fatalf("dialBackUser failed: %v", err)
		}
		if user != "bob" {
			t.Fatalf("expected bob, got %q", user)
		}
	})

	t.Run("falls back to own username", func(t *testing.T) {
		r := testRequester(t, map[string]string{"USER": "remote"})
		user, err := r.dialBackUser()
		if err != nil {
			t.Fatalf("dialBackUser failed: %v", err)
		}
		if user != "remote" {
			t.Fatalf("expected remote, got %q", user)
		}
	})
}
