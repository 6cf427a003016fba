//go:build linux || darwin

// File: internal/shm/cshm_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// cgo entry point for the POSIX primitives the engine needs: named
// shared memory, the reserve-then-MAP_FIXED double mapping, and
// process-shared pthread mutex/condition variables. The declarations
// live in cshm.h (shared across this file, header_unix.go, and
// segment_unix.go) as static inline wrappers, the same "one static C
// helper per libc call" shape the teacher uses for
// pthread_setaffinity_np in affinity/affinity_linux.go and
// internal/concurrency/pin_linux.go.

package shm

/*
#cgo linux LDFLAGS: -lrt -lpthread
#cgo darwin LDFLAGS: -lpthread
#include "cshm.h"
*/
import "C"

import (
	"syscall"
)

const cHeaderSize = uintptr(C.sizeof_hyperq_header_t)

func errnoError(op string, rc C.int) *Error {
	return errOS(op, syscall.Errno(rc)).WithContext("errno", int(rc))
}
