//go:build !windows && !darwin

package worker

import "syscall"

// maxRSSBytes: Linux and the BSDs report ru_maxrss in kilobytes.
func maxRSSBytes(r *syscall.Rusage) int64 {
	return int64(r.Maxrss) * 1024
}
