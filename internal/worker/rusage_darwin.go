//go:build darwin

package worker

import "syscall"

// maxRSSBytes: darwin reports ru_maxrss in bytes.
func maxRSSBytes(r *syscall.Rusage) int64 {
	return r.Maxrss
}
