package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tpodg/backchannel/internal/strutil"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// CollectHostKeyLines reads the local sshd public host keys matching the
// given globs and renders them as known_hosts lines. The responder does not
// know in advance which of the initiator's addresses it will dial, so the
// lines use a wildcard host pattern: what is pinned is the key itself.
func CollectHostKeyLines(globs []string) ([]string, error) {
	var lines []string
	for _, pattern := range globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad host key glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			data, err := os.ReadFile(match)
			if err != nil {
				continue
			}
			pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
			if err != nil {
				continue
			}
			lines = append(lines, knownhosts.Line([]string{"*"}, pub))
		}
	}
	return strutil.CleanList(lines), nil
}
