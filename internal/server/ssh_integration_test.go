package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tpodg/backchannel/internal/testutils"
)

func TestSSHServer_Integration(t *testing.T) {
	ctx := context.Background()
	sshC := testutils.SetupSSHContainer(t, ctx)
	defer sshC.Container.Terminate(ctx)

	s := NewSSHServer("test-container", sshC.Address, User{
		Name:   sshC.User,
		SSHKey: sshC.KeyPath,
	}, SSHOptions{
		KnownHostsPath: sshC.KnownHostsPath,
	})

	// Wait a bit for the SSH server to be fully ready
	time.Sleep(2 * time.Second)

	output, err := s.Execute(ctx, "echo 'hello world'")
	if err != nil {
		t.Fatalf("Execute failed: %v\nOutput: %s", err, output)
	}

	expected := "hello world\n"
	if output != expected {
		t.Errorf("expected %q, got %q", expected, output)
	}
}

func TestSSHServer_ExecuteWithInput_Integration(t *testing.T) {
	ctx := context.Background()
	sshC := testutils.SetupSSHContainer(t, ctx)
	defer sshC.Container.Terminate(ctx)

	s := NewSSHServer("test-container", sshC.Address, User{
		Name:   sshC.User,
		SSHKey: sshC.KeyPath,
	}, SSHOptions{
		KnownHostsPath: sshC.KnownHostsPath,
	})

	time.Sleep(2 * time.Second)

	content := "first line\nsecond line\n"
	output, err := s.ExecuteWithInput(ctx, "cat > /tmp/streamed && cat /tmp/streamed", strings.NewReader(content))
	if err != nil {
		t.Fatalf("ExecuteWithInput failed: %v\nOutput: %s", err, output)
	}
	if output != content {
		t.Errorf("expected %q, got %q", content, output)
	}
}
