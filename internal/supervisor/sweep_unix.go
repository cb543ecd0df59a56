//go:build !windows

package supervisor

import (
	"context"
	"os/exec"
	"regexp"
)

// Sweep runs pkill against the executable name as a whole path element, so
// that keyhunter itself is never matched.
func (s *processSweeper) Sweep(ctx context.Context) error {
	pattern := `(^|/)` + regexp.QuoteMeta(s.executable) + `( |$)`
	return exec.CommandContext(ctx, "pkill", "-KILL", "-f", pattern).Run()
}
