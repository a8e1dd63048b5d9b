// Package keys manages the backchannel credential: a passphrase-less
// ed25519 keypair stored in the configuration directory.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tpodg/backchannel/internal/config"
	"golang.org/x/crypto/ssh"
)

const (
	keyDirMode     = 0o700
	privateKeyMode = 0o600
	publicKeyMode  = 0o644

	keyComment = "backchannel"
)

type Manager struct {
	cfg *config.Config
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Pair holds the paths of an on-disk keypair.
type Pair struct {
	PrivateKeyPath string
	PublicKeyPath  string
}

// Ensure creates the configuration directory and the keypair if either is
// missing. Safe to call on every invocation.
func (m *Manager) Ensure() (Pair, error) {
	dir, err := m.cfg.KeyDir()
	if err != nil {
		return Pair{}, err
	}
	if err := os.MkdirAll(dir, keyDirMode); err != nil {
		return Pair{}, fmt.Errorf("failed to create key directory %q: %w", dir, err)
	}

	pair := Pair{
		PrivateKeyPath: filepath.Join(dir, m.cfg.KeyName),
		PublicKeyPath:  filepath.Join(dir, m.cfg.KeyName+".pub"),
	}

	if _, err := os.Stat(pair.PrivateKeyPath); err == nil {
		return pair, nil
	} else if !os.IsNotExist(err) {
		return Pair{}, fmt.Errorf("failed to stat private key %q: %w", pair.PrivateKeyPath, err)
	}

	if err := generate(pair); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// PublicKeyLine returns the single-line authorized_keys representation of
// the public key, without a trailing newline.
func (m *Manager) PublicKeyLine(pair Pair) (string, error) {
	data, err := os.ReadFile(pair.PublicKeyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read public key %q: %w", pair.PublicKeyPath, err)
	}
	pub, comment, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse public key %q: %w", pair.PublicKeyPath, err)
	}
	line := string(ssh.MarshalAuthorizedKey(pub))
	line = line[:len(line)-1]
	if comment != "" {
		line += " " + comment
	}
	return line, nil
}

// Signer loads and parses the private key for use as an SSH auth method.
func (m *Manager) Signer(pair Pair) (ssh.Signer, error) {
	data, err := os.ReadFile(pair.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %q: %w", pair.PrivateKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %q: %w", pair.PrivateKeyPath, err)
	}
	return signer, nil
}

func generate(pair Pair) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, keyComment)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := os.WriteFile(pair.PrivateKeyPath, pem.EncodeToMemory(block), privateKeyMode); err != nil {
		return fmt.Errorf("failed to write private key %q: %w", pair.PrivateKeyPath, err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return fmt.Errorf("failed to convert public key: %w", err)
	}
	line := string(ssh.MarshalAuthorizedKey(sshPub))
	line = line[:len(line)-1] + " " + keyComment + "\n"
	if err := os.WriteFile(pair.PublicKeyPath, []byte(line), publicKeyMode); err != nil {
		return fmt.Errorf("failed to write public key %q: %w", pair.PublicKeyPath, err)
	}
	return nil
}
