//go:build linux || darwin

// File: internal/shm/pagesize_unix.go
// Author: momentics <momentics@gmail.com>

package shm

import "golang.org/x/sys/unix"

func pageSize() int {
	return unix.Getpagesize()
}
