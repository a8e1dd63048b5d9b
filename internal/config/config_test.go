package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "backchannel-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, DefaultConfigFileName)
	configContent := `
config_dir: /tmp/bc-keys
tag: "# test-tag"
remote_known_hosts_path: .ssh/pinned_hosts
dialog_timeout: 12s
use_agent: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write temp config file: %v", err)
	}

	t.Run("load with overrides", func(t *testing.T) {
		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.ConfigDir != "/tmp/bc-keys" {
			t.Fatalf("expected config_dir /tmp/bc-keys, got %q", cfg.ConfigDir)
		}
		if cfg.Tag != "# test-tag" {
			t.Fatalf("expected custom tag, got %q", cfg.Tag)
		}
		if cfg.RemoteKnownHostsPath != ".ssh/pinned_hosts" {
			t.Fatalf("expected remote_known_hosts_path override, got %q", cfg.RemoteKnownHostsPath)
		}
		if cfg.DialogTimeout != 12*time.Second {
			t.Fatalf("expected dialog_timeout=12s, got %s", cfg.DialogTimeout)
		}
		if cfg.UseAgent == nil || *cfg.UseAgent != false {
			t.Fatalf("expected use_agent=false, got %v", cfg.UseAgent)
		}
	})

	t.Run("defaults fill unset fields", func(t *testing.T) {
		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.KeyName != "id_ed25519" {
			t.Fatalf("expected default key name, got %q", cfg.KeyName)
		}
		if cfg.RemoteMappingPath != ".backchannel" {
			t.Fatalf("expected default mapping path, got %q", cfg.RemoteMappingPath)
		}
		if cfg.RemoteKeyPath != ".ssh/id_backchannel" {
			t.Fatalf("expected default remote key path, got %q", cfg.RemoteKeyPath)
		}
		if cfg.HandshakeTimeout != 15*time.Second {
			t.Fatalf("expected default handshake_timeout, got %s", cfg.HandshakeTimeout)
		}
	})

	t.Run("load from non-existent file", func(t *testing.T) {
		_, err := Load("non-existent-file.yaml")
		if err == nil {
			t.Error("expected error when loading non-existent file, got nil")
		}
	})

	t.Run("env overrides tag", func(t *testing.T) {
		envKey := "BACKCHANNEL_TAG"
		if err := os.Setenv(envKey, "# env-tag"); err != nil {
			t.Fatalf("failed to set env var: %v", err)
		}
		t.Cleanup(func() {
			_ = os.Unsetenv(envKey)
		})

		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Tag != "# env-tag" {
			t.Fatalf("expected env override tag %q, got %q", "# env-tag", cfg.Tag)
		}
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to resolve home: %v", err)
	}

	got, err := ExpandPath("~/.ssh/authorized_keys")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, ".ssh", "authorized_keys") {
		t.Fatalf("unexpected expansion: %q", got)
	}

	got, err = ExpandPath("/absolute/path")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != "/absolute/path" {
		t.Fatalf("expected absolute path untouched, got %q", got)
	}
}
