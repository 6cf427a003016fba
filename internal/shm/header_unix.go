//go:build linux || darwin

// File: internal/shm/header_unix.go
// Author: momentics <momentics@gmail.com>
//
// Go-level view over the C hyperq_header_t embedded at offset 0 of
// the mapped segment. All mutation of head/tail/count must happen
// under Lock/Unlock; magic and refcount are the two fields mutated
// outside the mutex, via dedicated atomics (spec §5).

package shm

/*
#include "cshm.h"
*/
import "C"

import (
	"unsafe"
)

// headerSize is the size, in bytes, of the header region: the size of
// hyperq_header_t on this platform (pthread_mutex_t/pthread_cond_t
// vary across libcs, so this is computed by the C compiler, never
// assumed), rounded up to a page multiple so the ring mappings that
// follow it start at a page-aligned file offset and address.
func headerSize() uint64 {
	ps := uint64(pageSize())
	return (uint64(cHeaderSize) + ps - 1) / ps * ps
}

// header is a typed view over the header region of a mapped segment.
type header struct {
	ptr *C.hyperq_header_t
}

func newHeader(base unsafe.Pointer) header {
	return header{ptr: (*C.hyperq_header_t)(base)}
}

func (h header) Magic() uint32       { return uint32(C.hq_magic_load(h.ptr)) }
func (h header) SetMagic(v uint32)   { C.hq_magic_store(h.ptr, C.uint32_t(v)) }
func (h header) Capacity() uint64    { return uint64(h.ptr.capacity) }
func (h header) setCapacity(v uint64) { h.ptr.capacity = C.uint64_t(v) }
func (h header) Head() uint64        { return uint64(h.ptr.head) }
func (h header) setHead(v uint64)    { h.ptr.head = C.uint64_t(v) }
func (h header) Tail() uint64        { return uint64(h.ptr.tail) }
func (h header) setTail(v uint64)    { h.ptr.tail = C.uint64_t(v) }
func (h header) Count() uint64       { return uint64(h.ptr.count) }
func (h header) setCount(v uint64)   { h.ptr.count = C.uint64_t(v) }

// RefCount returns the live-handle count without modifying it.
func (h header) RefCount() uint32 { return uint32(C.hq_refcount_load(h.ptr)) }

// IncRef atomically increments refcount and returns the new value.
func (h header) IncRef() uint32 { return uint32(C.hq_refcount_inc(h.ptr)) }

// DecRef atomically decrements refcount and returns the new value.
// The caller observing 0 owns segment teardown (spec §3 Lifecycle).
func (h header) DecRef() uint32 { return uint32(C.hq_refcount_dec(h.ptr)) }

func (h header) setRefCount(v uint32) { C.hq_refcount_store(h.ptr, C.uint32_t(v)) }

// initSync initializes the embedded mutex and both condition
// variables with the process-shared attribute (spec §4.2).
func (h header) initSync() error {
	if rc := C.hq_mutex_init_pshared(&h.ptr.mutex); rc != 0 {
		return errnoError("pthread_mutex_init", rc)
	}
	if rc := C.hq_cond_init_pshared(&h.ptr.not_full); rc != 0 {
		return errnoError("pthread_cond_init(not_full)", rc)
	}
	if rc := C.hq_cond_init_pshared(&h.ptr.not_empty); rc != 0 {
		return errnoError("pthread_cond_init(not_empty)", rc)
	}
	return nil
}

// destroySync destroys the mutex and condition variables. Called only
// by the detacher that observes refcount transition to zero.
func (h header) destroySync() {
	C.hq_mutex_destroy(&h.ptr.mutex)
	C.hq_cond_destroy(&h.ptr.not_full)
	C.hq_cond_destroy(&h.ptr.not_empty)
}

// Lock acquires the segment mutex. A non-nil, ErrOwnerDied-wrapping
// error means the lock is held but a previous owner died mid-critical
// section; the caller proceeds (recovery policy is spec §4.6's
// explicit non-goal) but should log the condition.
func (h header) Lock() error {
	switch rc := C.hq_mutex_lock(&h.ptr.mutex); rc {
	case 0:
		return nil
	case 1:
		return newError(CodeOwnerDied, "previous mutex owner died; marked consistent")
	default:
		return errnoError("pthread_mutex_lock", rc)
	}
}

func (h header) Unlock() {
	C.hq_mutex_unlock(&h.ptr.mutex)
}

func (h header) WaitNotFull() error {
	if rc := C.hq_cond_wait(&h.ptr.not_full, &h.ptr.mutex); rc != 0 {
		return errnoError("pthread_cond_wait(not_full)", rc)
	}
	return nil
}

func (h header) WaitNotEmpty() error {
	if rc := C.hq_cond_wait(&h.ptr.not_empty, &h.ptr.mutex); rc != 0 {
		return errnoError("pthread_cond_wait(not_empty)", rc)
	}
	return nil
}

func (h header) SignalNotFull()      { C.hq_cond_signal(&h.ptr.not_full) }
func (h header) SignalNotEmpty()     { C.hq_cond_signal(&h.ptr.not_empty) }
func (h header) BroadcastNotFull()   { C.hq_cond_broadcast(&h.ptr.not_full) }
