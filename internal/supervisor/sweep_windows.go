//go:build windows

package supervisor

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// Sweep runs taskkill against the executable image name.
func (s *processSweeper) Sweep(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "taskkill", "/F", "/IM", s.executable)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	return cmd.Run()
}
