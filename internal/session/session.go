// Package session provides access to the environment variables the SSH
// daemon sets for a forced-command session. All ambient reads go through
// an Environment value so tests can inject a fake session.
package session

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const (
	sshClientVar       = "SSH_CLIENT"
	originalCommandVar = "SSH_ORIGINAL_COMMAND"
	displayVar         = "DISPLAY"
	xauthorityVar      = "XAUTHORITY"
	busAddressVar      = "DBUS_SESSION_BUS_ADDRESS"
)

// Environment reads session state from the process environment.
// The zero value is not usable; construct it with New.
type Environment struct {
	lookupEnv func(string) (string, bool)
}

// New returns an Environment backed by the real process environment.
func New() *Environment {
	return &Environment{lookupEnv: os.LookupEnv}
}

// NewWithLookup returns an Environment backed by the given lookup function.
func NewWithLookup(lookup func(string) (string, bool)) *Environment {
	return &Environment{lookupEnv: lookup}
}

// PeerAddress returns the IP address of the peer that opened the current
// SSH session, taken from the first field of SSH_CLIENT.
func (e *Environment) PeerAddress() (string, error) {
	value, ok := e.lookupEnv(sshClientVar)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s not set: not running inside an SSH session", sshClientVar)
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", fmt.Errorf("%s is empty", sshClientVar)
	}
	return fields[0], nil
}

// OriginalCommand returns the command the peer requested via the SSH
// session, or fallback when none was supplied.
func (e *Environment) OriginalCommand(fallback string) string {
	value, ok := e.lookupEnv(originalCommandVar)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// Username returns the local username, preferring USER and LOGNAME over
// a passwd lookup.
func (e *Environment) Username() (string, error) {
	for _, key := range []string{"USER", "LOGNAME"} {
		if value, ok := e.lookupEnv(key); ok && value != "" {
			return value, nil
		}
	}
	current, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to resolve current user: %w", err)
	}
	return current.Username, nil
}

// DesktopEnv returns the display, authority and message-bus variables for
// rendering a GUI prompt from a non-interactive session. Variables already
// present are kept; missing ones are probed at well-known locations.
func (e *Environment) DesktopEnv() []string {
	env := make([]string, 0, 3)

	display, ok := e.lookupEnv(displayVar)
	if !ok || display == "" {
		display = ":0"
	}
	env = append(env, displayVar+"="+display)

	if value, ok := e.lookupEnv(xauthorityVar); ok && value != "" {
		env = append(env, xauthorityVar+"="+value)
	} else if path := probeXauthority(); path != "" {
		env = append(env, xauthorityVar+"="+path)
	}

	if value, ok := e.lookupEnv(busAddressVar); ok && value != "" {
		env = append(env, busAddressVar+"="+value)
	} else {
		env = append(env, busAddressVar+"="+fmt.Sprintf("unix:path=/run/user/%d/bus", os.Getuid()))
	}

	return env
}

func probeXauthority() string {
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".Xauthority")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	matches, err := filepath.Glob(fmt.Sprintf("/run/user/%d/gdm/Xauthority", os.Getuid()))
	if err == nil && len(matches) > 0 {
		return matches[0]
	}
	return ""
}
