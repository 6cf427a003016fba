//go:build linux || darwin

// File: internal/shm/ring.go
// Author: momentics <momentics@gmail.com>
//
// RingOps: the enqueue/dequeue algorithms from spec §4.3/§4.4, and the
// introspection operations from spec §4.5. All mutation happens under
// the segment's process-shared mutex; the double mapping (segment.ring
// has length 2*capacity) is what lets every read/write below be a
// single contiguous slice operation even when the logical window
// wraps past capacity.

package shm

import (
	"encoding/binary"
	"log"
)

const lengthPrefixSize = 4

// lock acquires the segment mutex, logging and swallowing an
// owner-died condition since the mutex is recovered (robust) and the
// critical section can proceed; recovery of the data it protected is
// out of scope (spec §4.6). A non-owner-died error means the lock was
// never acquired and must propagate.
func (s *segment) lock() error {
	err := s.header.Lock()
	if err == nil {
		return nil
	}
	if isOwnerDied(err) {
		log.Printf("hyperq: segment %q recovered from dead mutex owner", s.name)
		return nil
	}
	return err
}

func isOwnerDied(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == CodeOwnerDied
}

// put blocks until the message fits, writes it, and commits it.
func (s *segment) put(data []byte) error {
	need := uint64(lengthPrefixSize + len(data))
	if need > s.capacity {
		return errMessageTooLarge(need, s.capacity)
	}

	h := s.header
	if err := s.lock(); err != nil {
		return err
	}
	defer h.Unlock()

	for h.Count()+need > s.capacity {
		if err := h.WaitNotFull(); err != nil {
			return err
		}
	}

	tail := h.Tail()
	binary.LittleEndian.PutUint32(s.ring[tail:], uint32(len(data)))
	copy(s.ring[tail+lengthPrefixSize:], data)

	h.setTail((tail + need) % s.capacity)
	h.setCount(h.Count() + need)
	h.SignalNotEmpty()
	return nil
}

// get blocks until a message is available, then returns a freshly
// allocated copy and advances head.
func (s *segment) get() ([]byte, error) {
	h := s.header
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer h.Unlock()

	for h.Count() == 0 {
		if err := h.WaitNotEmpty(); err != nil {
			return nil, err
		}
	}

	head := h.Head()
	length := uint64(binary.LittleEndian.Uint32(s.ring[head:]))
	if lengthPrefixSize+length > h.Count() || lengthPrefixSize+length > s.capacity {
		return nil, errCorruptState("length prefix overruns live data")
	}

	out := make([]byte, length)
	copy(out, s.ring[head+lengthPrefixSize:head+lengthPrefixSize+length])

	need := lengthPrefixSize + length
	h.setHead((head + need) % s.capacity)
	h.setCount(h.Count() - need)
	h.SignalNotFull()
	return out, nil
}

func (s *segment) empty() bool {
	h := s.header
	if err := s.lock(); err != nil {
		return true
	}
	defer h.Unlock()
	return h.Count() == 0
}

func (s *segment) full() bool {
	h := s.header
	if err := s.lock(); err != nil {
		return false
	}
	defer h.Unlock()
	return h.Count()+lengthPrefixSize+1 > s.capacity
}

func (s *segment) size() uint64 {
	h := s.header
	if err := s.lock(); err != nil {
		return 0
	}
	defer h.Unlock()
	return h.Count()
}

func (s *segment) head() uint64 {
	h := s.header
	if err := s.lock(); err != nil {
		return 0
	}
	defer h.Unlock()
	return h.Head()
}

func (s *segment) tail() uint64 {
	h := s.header
	if err := s.lock(); err != nil {
		return 0
	}
	defer h.Unlock()
	return h.Tail()
}

func (s *segment) clear() error {
	h := s.header
	if err := s.lock(); err != nil {
		return err
	}
	defer h.Unlock()
	h.setHead(0)
	h.setTail(0)
	h.setCount(0)
	h.BroadcastNotFull()
	return nil
}
