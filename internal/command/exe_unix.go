//go:build !windows

package command

// Executable is the search binary's file name on this platform.
const Executable = "keyhunt"
