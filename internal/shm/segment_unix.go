//go:build linux || darwin

// File: internal/shm/segment_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Segment creation/attachment and the reserve-then-MAP_FIXED double
// mapping described in spec §4.1 and §9 ("Double virtual mapping").

package shm

/*
#include "cshm.h"
*/
import "C"

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// attachSpinInterval and attachTimeout bound how long an attacher
// waits for a just-created segment's header to finish initializing
// (spec §4.2: "Attachers spin-wait up to a short bounded interval").
const (
	attachSpinInterval = 200 * time.Microsecond
	attachTimeout      = 2 * time.Second
)

// segment owns the mapped memory for one process's view of a named
// shared-memory ring buffer.
type segment struct {
	name       string // canonical, with leading "/"
	fd         int
	base       unsafe.Pointer // start of the HeaderSize+2*capacity reservation
	totalLen   uint64
	capacity   uint64
	header     header
	ring       []byte // 2*capacity bytes, base+HeaderSize, aliased twice
	wasCreator bool
}

// createSegment creates a brand-new named segment of the requested
// capacity (rounded up to a page multiple) and maps it.
func createSegment(canonicalName string, capacity uint64) (*segment, error) {
	capacity, err := roundCapacity(capacity)
	if err != nil {
		return nil, err
	}

	cname := C.CString(canonicalName)
	defer C.free(unsafe.Pointer(cname))

	var cfd C.int
	if rc := C.hq_shm_open_create(cname, &cfd); rc != 0 {
		return nil, errnoError("shm_open(O_CREAT|O_EXCL)", rc)
	}
	fd := int(cfd)

	seg, err := finishCreate(canonicalName, fd, capacity)
	if err != nil {
		// Creator failure leaves no partially-initialized segment (spec §7).
		C.hq_close(cfd)
		cunlink := C.CString(canonicalName)
		C.hq_shm_unlink(cunlink)
		C.free(unsafe.Pointer(cunlink))
		return nil, err
	}
	return seg, nil
}

func finishCreate(canonicalName string, fd int, capacity uint64) (*segment, error) {
	// createSegment has already validated and rounded capacity, so this
	// second rounding leaves it unchanged.
	capacity, err := roundCapacity(capacity)
	if err != nil {
		return nil, err
	}
	physicalSize := headerSize() + capacity
	if rc := C.hq_ftruncate(C.int(fd), C.off_t(physicalSize)); rc != 0 {
		return nil, errnoError("ftruncate", rc)
	}

	base, ring, err := mapDouble(fd, capacity)
	if err != nil {
		return nil, err
	}

	hdr := newHeader(base)
	hdr.setCapacity(capacity)
	hdr.setHead(0)
	hdr.setTail(0)
	hdr.setCount(0)
	hdr.setRefCount(1)
	if err := hdr.initSync(); err != nil {
		unmapDouble(base, capacity)
		return nil, err
	}
	hdr.SetMagic(HeaderMagic)

	return &segment{
		name:       canonicalName,
		fd:         fd,
		base:       base,
		totalLen:   headerSize() + 2*capacity,
		capacity:   capacity,
		header:     hdr,
		ring:       ring,
		wasCreator: true,
	}, nil
}

// attachSegment opens a pre-existing named segment and maps it. A
// timeout of zero falls back to the package default attachTimeout.
func attachSegment(canonicalName string, timeout time.Duration) (*segment, error) {
	if timeout <= 0 {
		timeout = attachTimeout
	}
	deadline := time.Now().Add(timeout)

	cname := C.CString(canonicalName)
	defer C.free(unsafe.Pointer(cname))

	var cfd C.int
	if rc := C.hq_shm_open_attach(cname, &cfd); rc != 0 {
		return nil, errnoError("shm_open", rc)
	}
	fd := int(cfd)

	// The creator may win shm_open(O_CREAT|O_EXCL) before it has run
	// ftruncate, leaving a zero-length object. Mapping and dereferencing
	// the header region of a too-short file raises SIGBUS rather than
	// reading zeros, so wait for the backing file to reach headerSize()
	// before ever mapping it (spec §4.2's "segment exists but not yet
	// initialized" race must degrade to the timeout path, not a crash).
	for {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			C.hq_close(cfd)
			return nil, errOS("fstat", err)
		}
		if uint64(st.Size) >= headerSize() {
			break
		}
		if time.Now().After(deadline) {
			C.hq_close(cfd)
			return nil, errNotInitialized(canonicalName)
		}
		time.Sleep(attachSpinInterval)
	}

	// The creator may still not have finished initializing the header's
	// contents; peek the header region alone first to learn capacity
	// once magic appears.
	hdrBase, err := mmapReserveFixed(fd, headerSize())
	if err != nil {
		C.hq_close(cfd)
		return nil, err
	}
	hdr := newHeader(hdrBase)

	for hdr.Magic() != HeaderMagic {
		if time.Now().After(deadline) {
			unmapRegion(hdrBase, headerSize())
			C.hq_close(cfd)
			return nil, errNotInitialized(canonicalName)
		}
		time.Sleep(attachSpinInterval)
	}
	capacity := hdr.Capacity()
	unmapRegion(hdrBase, headerSize())

	base, ring, err := mapDouble(fd, capacity)
	if err != nil {
		C.hq_close(cfd)
		return nil, err
	}
	hdr = newHeader(base)
	hdr.IncRef()

	return &segment{
		name:       canonicalName,
		fd:         fd,
		base:       base,
		totalLen:   headerSize() + 2*capacity,
		capacity:   capacity,
		header:     hdr,
		ring:       ring,
		wasCreator: false,
	}, nil
}

// mapDouble implements spec §4.1 steps 4-6: reserve the full region,
// then replace the header and (twice) the capacity region with
// MAP_FIXED mappings backed by the same fd offset.
func mapDouble(fd int, capacity uint64) (base unsafe.Pointer, ring []byte, err error) {
	totalLen := headerSize() + 2*capacity

	var cbase unsafe.Pointer
	if rc := C.hq_mmap_reserve(C.size_t(totalLen), &cbase); rc != 0 {
		return nil, nil, errnoError("mmap(reserve)", rc)
	}

	if rc := C.hq_mmap_fixed(cbase, C.size_t(headerSize()), C.int(fd), 0); rc != 0 {
		C.hq_munmap(cbase, C.size_t(totalLen))
		return nil, nil, errnoError("mmap(header, MAP_FIXED)", rc)
	}

	ringBase := unsafe.Pointer(uintptr(cbase) + uintptr(headerSize()))
	if rc := C.hq_mmap_fixed(ringBase, C.size_t(capacity), C.int(fd), C.off_t(headerSize())); rc != 0 {
		C.hq_munmap(cbase, C.size_t(totalLen))
		return nil, nil, errnoError("mmap(ring[0], MAP_FIXED)", rc)
	}

	ringMirror := unsafe.Pointer(uintptr(ringBase) + uintptr(capacity))
	if rc := C.hq_mmap_fixed(ringMirror, C.size_t(capacity), C.int(fd), C.off_t(headerSize())); rc != 0 {
		C.hq_munmap(cbase, C.size_t(totalLen))
		return nil, nil, errnoError("mmap(ring[1], MAP_FIXED)", rc)
	}

	ring = unsafe.Slice((*byte)(ringBase), int(2*capacity))
	return cbase, ring, nil
}

// mmapReserveFixed maps exactly `length` bytes of an existing fd at a
// freshly reserved address, used for the attacher's header-only peek.
func mmapReserveFixed(fd int, length uint64) (unsafe.Pointer, error) {
	var cbase unsafe.Pointer
	if rc := C.hq_mmap_reserve(C.size_t(length), &cbase); rc != 0 {
		return nil, errnoError("mmap(reserve)", rc)
	}
	if rc := C.hq_mmap_fixed(cbase, C.size_t(length), C.int(fd), 0); rc != 0 {
		C.hq_munmap(cbase, C.size_t(length))
		return nil, errnoError("mmap(header-peek, MAP_FIXED)", rc)
	}
	return cbase, nil
}

func unmapRegion(addr unsafe.Pointer, length uint64) {
	C.hq_munmap(addr, C.size_t(length))
}

func unmapDouble(base unsafe.Pointer, capacity uint64) {
	C.hq_munmap(base, C.size_t(headerSize()+2*capacity))
}

// detach unmaps this process's view of the segment. If last is true
// (the caller's refcount decrement observed zero), it also destroys
// the sync primitives and unlinks the kernel name (spec §3 Detach).
func (s *segment) detach(last bool) error {
	if last {
		s.header.destroySync()
	}
	unmapDouble(s.base, s.capacity)
	C.hq_close(C.int(s.fd))
	if last {
		cname := C.CString(s.name)
		defer C.free(unsafe.Pointer(cname))
		if rc := C.hq_shm_unlink(cname); rc != 0 {
			return errnoError("shm_unlink", rc)
		}
	}
	return nil
}
