//go:build linux || darwin

// File: internal/shm/handle_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handle bundles the mapped segment with the per-process bookkeeping
// (name, creator/attacher flag) and implements refcounted lifecycle
// per spec §4.6 and §9 ("Refcount vs creator flag").

package shm

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Handle is the per-process engine object backing one queue.Queue.
type Handle struct {
	mu      sync.Mutex
	seg     *segment
	closed  bool
	created bool
}

// Open creates a new named segment, or attaches to an existing one of
// the same name, per spec §3 collision semantics ("if a name already
// exists, the new handle attaches rather than erroring").
func Open(opts Options) (*Handle, error) {
	name := opts.Name
	if name == "" {
		name = uniqueName(opts.NamePrefix)
	}
	canonical, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	seg, err := createSegment(canonical, opts.Capacity)
	if err == nil {
		return &Handle{seg: seg, created: true}, nil
	}
	if !isAlreadyExists(err) {
		return nil, err
	}

	seg, err = attachSegment(canonical, opts.AttachTimeout)
	if err != nil {
		return nil, err
	}
	return &Handle{seg: seg, created: false}, nil
}

func isAlreadyExists(err error) bool {
	e, ok := err.(*Error)
	if !ok || e.Code != CodeOS {
		return false
	}
	op, _ := e.Context["op"].(string)
	errno, _ := e.Context["errno"].(int)
	return op == "shm_open(O_CREAT|O_EXCL)" && unix.Errno(errno) == unix.EEXIST
}

// Name returns the normalized name without its leading slash (spec §6).
func (hnd *Handle) Name() string {
	return displayName(hnd.seg.name)
}

// Capacity returns the segment's (page-rounded) capacity in bytes.
func (hnd *Handle) Capacity() uint64 {
	return hnd.seg.capacity
}

// WasCreator reports whether this process created the segment rather
// than attaching to an existing one.
func (hnd *Handle) WasCreator() bool {
	return hnd.created
}

// Put blocks until data fits and commits it (spec §4.3).
func (hnd *Handle) Put(data []byte) error {
	if len(data) == 0 {
		return errInvalidArgument("put: data must not be empty")
	}
	hnd.mu.Lock()
	closed := hnd.closed
	seg := hnd.seg
	hnd.mu.Unlock()
	if closed {
		return errInvalidArgument("put: handle is closed")
	}
	return seg.put(data)
}

// Get blocks until a message is available and returns it (spec §4.4).
func (hnd *Handle) Get() ([]byte, error) {
	hnd.mu.Lock()
	closed := hnd.closed
	seg := hnd.seg
	hnd.mu.Unlock()
	if closed {
		return nil, errInvalidArgument("get: handle is closed")
	}
	return seg.get()
}

func (hnd *Handle) Empty() bool  { return hnd.seg.empty() }
func (hnd *Handle) Full() bool   { return hnd.seg.full() }
func (hnd *Handle) Size() uint64 { return hnd.seg.size() }
func (hnd *Handle) Clear() error { return hnd.seg.clear() }

// Head and Tail expose the ring's current byte offsets for debug
// probes; RefCount exposes the live-handle count.
func (hnd *Handle) Head() uint64     { return hnd.seg.head() }
func (hnd *Handle) Tail() uint64     { return hnd.seg.tail() }
func (hnd *Handle) RefCount() uint32 { return hnd.seg.header.RefCount() }

// Close detaches this handle. The detacher that observes refcount
// transition to zero tears the segment down (spec §3 Detach, §9).
func (hnd *Handle) Close() error {
	hnd.mu.Lock()
	defer hnd.mu.Unlock()
	if hnd.closed {
		return nil
	}
	hnd.closed = true

	remaining := hnd.seg.header.DecRef()
	return hnd.seg.detach(remaining == 0)
}
