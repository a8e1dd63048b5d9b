package session

import (
	"strings"
	"testing"
)

func fakeEnv(vars map[string]string) *Environment {
	return NewWithLookup(func(key string) (string, bool) {
		value, ok := vars[key]
		return value, ok
	})
}

func TestPeerAddress(t *testing.T) {
	t.Run("extracts first field", func(t *testing.T) {
		env := fakeEnv(map[string]string{"SSH_CLIENT": "192.0.2.10 51234 22"})
		addr, err := env.PeerAddress()
		if err != nil {
			t.Fatalf("PeerAddress failed: %v", err)
		}
		if addr != "192.0.2.10" {
			t.Fatalf("expected 192.0.2.10, got %q", addr)
		}
	})

	t.Run("ipv6 peer", func(t *testing.T) {
		env := fakeEnv(map[string]string{"SSH_CLIENT": "2001:db8::2 51234 22"})
		addr, err := env.PeerAddress()
		if err != nil {
			t.Fatalf("PeerAddress failed: %v", err)
		}
		if addr != "2001:db8::2" {
			t.Fatalf("expected 2001:db8::2, got %q", addr)
		}
	})

	t.Run("missing variable", func(t *testing.T) {
		env := fakeEnv(map[string]string{})
		if _, err := env.PeerAddress(); err == nil {
			t.Fatal("expected error when SSH_CLIENT is unset")
		}
	})

	t.Run("blank variable", func(t *testing.T) {
		env := fakeEnv(map[string]string{"SSH_CLIENT": "   "})
		if _, err := env.PeerAddress(); err == nil {
			t.Fatal("expected error when SSH_CLIENT is blank")
		}
	})
}

func TestOriginalCommand(t *testing.T) {
	env := fakeEnv(map[string]string{"SSH_ORIGINAL_COMMAND": "uname -a"})
	if got := env.OriginalCommand("noop"); got != "uname -a" {
		t.Fatalf("expected original command, got %q", got)
	}

	env = fakeEnv(map[string]string{})
	if got := env.OriginalCommand("noop"); got != "noop" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestUsername(t *testing.T) {
	env := fakeEnv(map[string]string{"USER": "alice"})
	name, err := env.Username()
	if err != nil {
		t.Fatalf("Username failed: %v", err)
	}
	if name != "alice" {
		t.Fatalf("expected alice, got %q", name)
	}

	env = fakeEnv(map[string]string{"LOGNAME": "bob"})
	name, err = env.Username()
	if err != nil {
		t.Fatalf("Username failed: %v", err)
	}
	if name != "bob" {
		t.Fatalf("expected bob, got %q", name)
	}
}

func TestDesktopEnv(t *testing.T) {
	t.Run("defaults display", func(t *testing.T) {
		env := fakeEnv(map[string]string{})
		vars := env.DesktopEnv()
		if !containsEntry(vars, "DISPLAY=:0") {
			t.Fatalf("expected DISPLAY=:0, got %v", vars)
		}
		if !containsPrefix(vars, "DBUS_SESSION_BUS_ADDRESS=unix:path=/run/user/") {
			t.Fatalf("expected defaulted bus address, got %v", vars)
		}
	})

	t.Run("keeps existing values", func(t *testing.T) {
		env := fakeEnv(map[string]string{
			"DISPLAY":                  ":1",
			"XAUTHORITY":               "/tmp/xauth",
			"DBUS_SESSION_BUS_ADDRESS": "unix:path=/tmp/bus",
		})
		vars := env.DesktopEnv()
		if !containsEntry(vars, "DISPLAY=:1") {
			t.Fatalf("expected DISPLAY=:1, got %v", vars)
		}
		if !containsEntry(vars, "XAUTHORITY=/tmp/xauth") {
			t.Fatalf("expected existing XAUTHORITY, got %v", vars)
		}
		if !containsEntry(vars, "DBUS_SESSION_BUS_ADDRESS=unix:path=/tmp/bus") {
			t.Fatalf("expected existing bus address, got %v", vars)
		}
	})
}

func containsEntry(vars []string, entry string) bool {
	for _, v := range vars {
		if v == entry {
			return true
		}
	}
	return false
}

func containsPrefix(vars []string, prefix string) bool {
	for _, v := range vars {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}
