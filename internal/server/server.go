package server

import (
	"context"
	"io"
)

// Server represents a remote host reachable over SSH.
type Server interface {
	// ID returns a unique identifier for the server.
	ID() string
	// Address returns the connection address (IP or hostname).
	Address() string
	// Execute runs a command on the server.
	Execute(ctx context.Context, command string) (string, error)
	// ExecuteWithInput runs a command on the server, streaming input into
	// its standard input until exhausted.
	ExecuteWithInput(ctx context.Context, command string, input io.Reader) (string, error)
}

// Configurator defines the interface for applying configurations to a server.
type Configurator interface {
	// Configure applies the given configuration steps to the server.
	Configure(ctx context.Context, s Server) error
}
