package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tpodg/backchannel/internal/config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

type SSHServer struct {
	name    string
	address string
	user    User
	opts    SSHOptions
}

type SSHOptions struct {
	// KnownHostsPath locates the known_hosts file used for host key
	// verification. Empty means ~/.ssh/known_hosts.
	KnownHostsPath string
	// InsecureHostKey disables host key verification entirely.
	InsecureHostKey  bool
	UseAgent         *bool
	HandshakeTimeout time.Duration
}

const defaultSSHHandshakeTimeout = 15 * time.Second

func NewSSHServer(name, address string, user User, opts SSHOptions) *SSHServer {
	return &SSHServer{
		name:    name,
		address: address,
		user:    user,
		opts:    opts,
	}
}

func (s *SSHServer) ID() string      { return s.name }
func (s *SSHServer) Address() string { return s.address }

// Execute runs a command on the server and returns its combined output.
func (s *SSHServer) Execute(ctx context.Context, command string) (string, error) {
	return s.ExecuteWithInput(ctx, command, nil)
}

// ExecuteWithInput runs a command with input streamed into its stdin.
func (s *SSHServer) ExecuteWithInput(ctx context.Context, command string, input io.Reader) (string, error) {
	var output strings.Builder
	err := s.Run(ctx, command, input, &output, &output)
	if err != nil {
		return output.String(), fmt.Errorf("command %q failed: %w", command, err)
	}
	return output.String(), nil
}

// Run executes a command with the given streams attached. The remote exit
// status is surfaced through the returned error.
func (s *SSHServer) Run(ctx context.Context, command string, stdin io.Reader, stdout, stderr io.Writer) error {
	addr := dialAddress(s.address)

	authMethods := []ssh.AuthMethod{}

	if s.user.Signer != nil {
		authMethods = append(authMethods, ssh.PublicKeys(s.user.Signer))
	} else if s.user.SSHKey != "" {
		expandedPath, err := config.ExpandPath(s.user.SSHKey)
		if err != nil {
			return fmt.Errorf("failed to expand ssh key path %q: %w", s.user.SSHKey, err)
		}
		key, err := os.ReadFile(expandedPath)
		if err != nil {
			return fmt.Errorf("failed to read ssh key %q: %w", expandedPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return fmt.Errorf("failed to parse ssh key %q: %w", expandedPath, err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	if s.useAgent() {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			if agentConn, err := net.Dial("unix", sock); err == nil {
				authMethods = append(authMethods, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
				defer agentConn.Close()
			}
		}
	}

	if len(authMethods) == 0 {
		return fmt.Errorf("no ssh authentication methods available")
	}

	hostKeyCallback, err := s.hostKeyCallback()
	if err != nil {
		return err
	}

	clientConfig := &ssh.ClientConfig{
		User:            s.user.Name,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}

	// Use a dialer that supports context
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	if err := applyHandshakeDeadline(ctx, conn, s.handshakeTimeout()); err != nil {
		conn.Close()
		return err
	}
	handshakeDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-handshakeDone:
		}
	}()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		close(handshakeDone)
		conn.Close()
		return fmt.Errorf("failed to establish ssh connection to %s: %w", addr, err)
	}
	close(handshakeDone)
	if err := clearDeadline(conn); err != nil {
		sshConn.Close()
		return err
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	// Handle context cancellation
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()
	defer close(done)

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = stderr

	return session.Run(command)
}

// dialAddress normalizes an address for net.Dial, appending the default SSH
// port when none is present. Bare IPv6 literals get bracketed.
func dialAddress(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.Trim(address, "[]"), "22")
}

func (s *SSHServer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.opts.InsecureHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path, err := resolveKnownHostsPath(s.opts.KnownHostsPath)
	if err != nil {
		return nil, err
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts file %q: %w", path, err)
	}
	return callback, nil
}

func (s *SSHServer) useAgent() bool {
	if s.opts.UseAgent == nil {
		return true
	}
	return *s.opts.UseAgent
}

func (s *SSHServer) handshakeTimeout() time.Duration {
	if s.opts.HandshakeTimeout > 0 {
		return s.opts.HandshakeTimeout
	}
	return defaultSSHHandshakeTimeout
}

func applyHandshakeDeadline(ctx context.Context, conn net.Conn, timeout time.Duration) error {
	deadline, ok := handshakeDeadline(ctx, timeout)
	if !ok {
		return nil
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set ssh handshake deadline: %w", err)
	}
	return nil
}

func clearDeadline(conn net.Conn) error {
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return fmt.Errorf("clear ssh handshake deadline: %w", err)
	}
	return nil
}

func handshakeDeadline(ctx context.Context, timeout time.Duration) (time.Time, bool) {
	var deadline time.Time
	now := time.Now()
	if timeout > 0 {
		deadline = now.Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok {
		if deadline.IsZero() || ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
	}
	if deadline.IsZero() {
		return time.Time{}, false
	}
	return deadline, true
}

func resolveKnownHostsPath(path string) (string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory for known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return config.ExpandPath(path)
}
