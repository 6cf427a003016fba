//go:build !linux && !darwin

// File: internal/shm/pagesize_other.go
// Author: momentics <momentics@gmail.com>
//
// HyperQ is POSIX-specific (spec §1 Non-goals: no Windows support).
// This stub keeps options.go buildable on every GOOS; it is never
// exercised because Open() fails fast on these platforms.

package shm

func pageSize() int {
	return 4096
}
