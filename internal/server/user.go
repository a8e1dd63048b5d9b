package server

import "golang.org/x/crypto/ssh"

// User holds the credentials for connecting to a server. Signer takes
// precedence over SSHKey when both are set.
type User struct {
	Name   string
	SSHKey string
	Signer ssh.Signer
}
