// Package mapping reads and writes the responder-side record that maps
// the initiator's reachable address to the username used when dialing back.
//
// The canonical format is a pair of shell-style assignments:
//
//	BACKCHANNEL_HOST=<host>
//	BACKCHANNEL_USER=<user>
//
// The legacy colon format ("host:user", one per line) is still accepted on
// read; the last complete record wins in either format.
package mapping

import (
	"fmt"
	"strings"

	"github.com/tpodg/backchannel/internal/task/taskutil"
)

const (
	hostKey = "BACKCHANNEL_HOST"
	userKey = "BACKCHANNEL_USER"
)

// Record associates the initiator's reachable address with the username
// the responder uses when dialing back.
type Record struct {
	Host string
	User string
}

// Format renders the record in the canonical key=value form, with a
// trailing newline.
func Format(r Record) string {
	return fmt.Sprintf("%s=%s\n%s=%s\n", hostKey, r.Host, userKey, r.User)
}

// Parse extracts the effective record from file content. The second return
// value is false when no complete record was found. Comments, blank lines
// and unknown keys are ignored.
func Parse(content string) (Record, bool, error) {
	var current Record
	var found bool

	err := taskutil.ScanLines(content, func(line string) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}

		if key, value, ok := strings.Cut(line, "="); ok {
			switch strings.TrimSpace(key) {
			case hostKey:
				current.Host = strings.TrimSpace(value)
			case userKey:
				current.User = strings.TrimSpace(value)
			}
			if current.Host != "" && current.User != "" {
				found = true
			}
			return
		}

		// Legacy colon format: host:user, last line wins.
		if host, user, ok := strings.Cut(line, ":"); ok {
			host = strings.TrimSpace(host)
			user = strings.TrimSpace(user)
			if user == "" {
				return
			}
			current = Record{Host: host, User: user}
			found = true
		}
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("scan mapping record: %w", err)
	}

	if !found || current.User == "" {
		return Record{}, false, nil
	}
	return current, true, nil
}

// Validate rejects records whose fields could not be a hostname or username.
func Validate(r Record) error {
	if err := taskutil.ValidateIdentifier("user", r.User); err != nil {
		return err
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}
