package taskutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/tpodg/backchannel/internal/server"
	"github.com/tpodg/backchannel/internal/strutil"
)

const missingFileSentinel = "__BACKCHANNEL_MISSING__"

// ReadFileIfExists reads a remote file, reporting a missing file through
// the second return value instead of an error.
func ReadFileIfExists(ctx context.Context, s server.Server, path string) (string, bool, error) {
	marker := missingFileSentinel + ":" + path
	pathEsc := strutil.ShellEscape(path)
	script := fmt.Sprintf(
		"if [ -f %s ]; then cat %s; else printf '%%s' %s; fi",
		pathEsc,
		pathEsc,
		strutil.ShellEscape(marker),
	)
	cmd := "sh -c " + strutil.ShellEscape(script)
	output, err := s.Execute(ctx, cmd)
	if err != nil {
		return "", false, fmt.Errorf("read file %q: %w", path, err)
	}
	if strings.TrimSpace(output) == marker {
		return "", true, nil
	}
	return output, false, nil
}
