package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goconfig "github.com/tpodg/go-config"
)

const DefaultConfigFileName = ".backchannel.yaml"

const (
	defaultConfigDir        = "~/.config/backchannel"
	defaultKeyName          = "id_ed25519"
	defaultAuthorizedKeys   = "~/.ssh/authorized_keys"
	defaultTag              = "# backchannel-key"
	defaultMappingPath      = ".backchannel"
	defaultRemoteKeyPath    = ".ssh/id_backchannel"
	defaultKnownHostsPath   = ".ssh/backchannel_known_hosts"
	defaultDialogTimeout    = 30 * time.Second
	defaultHandshakeTimeout = 15 * time.Second
)

// Config holds every path and knob the backchannel commands use. It is
// built once at process start and passed down explicitly.
type Config struct {
	ConfigDir      string `yaml:"config_dir"`
	KeyName        string `yaml:"key_name"`
	AuthorizedKeys string `yaml:"authorized_keys"`
	Tag            string `yaml:"tag"`

	// Paths on the responder, relative to its home directory.
	RemoteMappingPath    string `yaml:"remote_mapping_path"`
	RemoteKeyPath        string `yaml:"remote_key_path"`
	RemoteKnownHostsPath string `yaml:"remote_known_hosts_path"`

	DialogTimeout    time.Duration `yaml:"dialog_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	UseAgent         *bool         `yaml:"use_agent"`
}

// Load the configuration from the given file or default locations.
func Load(cfgFile string) (*Config, error) {
	path, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}

	c := goconfig.New()
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
		}
		c.WithProviders(&goconfig.Yaml{Path: absPath})
	}

	c.WithProviders(&goconfig.Env{Prefix: "BACKCHANNEL"})

	cfg := &Config{}
	if err := c.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ConfigDir == "" {
		c.ConfigDir = defaultConfigDir
	}
	if c.KeyName == "" {
		c.KeyName = defaultKeyName
	}
	if c.AuthorizedKeys == "" {
		c.AuthorizedKeys = defaultAuthorizedKeys
	}
	if c.Tag == "" {
		c.Tag = defaultTag
	}
	if c.RemoteMappingPath == "" {
		c.RemoteMappingPath = defaultMappingPath
	}
	if c.RemoteKeyPath == "" {
		c.RemoteKeyPath = defaultRemoteKeyPath
	}
	if c.RemoteKnownHostsPath == "" {
		c.RemoteKnownHostsPath = defaultKnownHostsPath
	}
	if c.DialogTimeout == 0 {
		c.DialogTimeout = defaultDialogTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
}

// KeyDir returns the expanded keypair directory.
func (c *Config) KeyDir() (string, error) {
	return ExpandPath(c.ConfigDir)
}

// PrivateKeyPath returns the expanded path of the private key half.
func (c *Config) PrivateKeyPath() (string, error) {
	dir, err := c.KeyDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.KeyName), nil
}

// PublicKeyPath returns the expanded path of the public key half.
func (c *Config) PublicKeyPath() (string, error) {
	keyPath, err := c.PrivateKeyPath()
	if err != nil {
		return "", err
	}
	return keyPath + ".pub", nil
}

// AuthorizedKeysPath returns the expanded authorized_keys path.
func (c *Config) AuthorizedKeysPath() (string, error) {
	return ExpandPath(c.AuthorizedKeys)
}

// MappingPath returns the mapping record path under the local home
// directory. On the responder the record lives at the same relative spot.
func (c *Config) MappingPath() (string, error) {
	return ExpandPath("~/" + c.RemoteMappingPath)
}

// CallbackKeyPath returns the provisioned key path under the local home.
func (c *Config) CallbackKeyPath() (string, error) {
	return ExpandPath("~/" + c.RemoteKeyPath)
}

// CallbackKnownHostsPath returns the pinned host key path under the local home.
func (c *Config) CallbackKnownHostsPath() (string, error) {
	return ExpandPath("~/" + c.RemoteKnownHostsPath)
}

func findConfigFile(cfgFile string) (string, error) {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		return cfgFile, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, DefaultConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if _, err := os.Stat(DefaultConfigFileName); err == nil {
		return DefaultConfigFileName, nil
	}

	return "", nil
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
