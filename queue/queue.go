// File: queue/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package queue is HyperQ's public bytes facade: a bounded,
// multi-producer/multi-consumer FIFO backed by a named POSIX shared
// memory segment. It wires exactly one subsystem, internal/shm.Handle,
// behind a Config/DefaultConfig pair and thin delegating methods.

package queue

import (
	"sync"
	"time"

	"github.com/momentics/hyperq/control"
	"github.com/momentics/hyperq/internal/shm"
)

// Config exposes the parameters Open needs.
type Config struct {
	// Name is the segment name, with or without a leading "/". Empty
	// synthesizes a unique name.
	Name string
	// Capacity is the requested ring capacity in bytes, rounded up to
	// a page multiple by the creator. Zero sources the runtime's
	// configured KeyDefaultCapacity.
	Capacity uint64
	// NamePrefix seeds a synthesized name when Name is empty. Empty
	// sources the runtime's configured KeyDefaultNamePrefix.
	NamePrefix string
	// AttachTimeout bounds how long an attach spin-waits on a
	// just-created segment's header. Zero sources the runtime's
	// configured KeyAttachTimeout.
	AttachTimeout time.Duration
}

// DefaultConfig returns a zero-value Config; Open resolves every
// field from the runtime's ConfigStore, grounded on the same
// Config/DefaultConfig pairing the teacher uses throughout its
// adapters and facade.
func DefaultConfig() *Config {
	return &Config{}
}

// Queue is the per-process handle to a named HyperQ ring buffer.
type Queue struct {
	mu         sync.RWMutex
	handle     *shm.Handle
	runtime    *control.Runtime
	ownRuntime bool
	closed     bool
}

// Open creates a new named queue, or attaches to an existing one of
// the same name (spec.md §3 collision semantics). cfg may be nil, in
// which case DefaultConfig is used. rt may be nil, in which case Open
// builds and owns a fresh control.Runtime (closed alongside the
// queue); a caller-supplied rt is left running for the caller to
// close, and its debug probe registry and config defaults are shared
// with every other queue wired to the same runtime.
func Open(cfg *Config, rt *control.Runtime) (*Queue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ownRuntime := rt == nil
	if ownRuntime {
		rt = control.NewRuntime()
	}

	opts := shm.Options{
		Name:          cfg.Name,
		Capacity:      rt.Capacity(cfg.Capacity),
		NamePrefix:    rt.NamePrefix(cfg.NamePrefix),
		AttachTimeout: rt.AttachTimeout(cfg.AttachTimeout),
	}
	handle, err := shm.Open(opts)
	if err != nil {
		if ownRuntime {
			rt.Close()
		}
		return nil, err
	}

	q := &Queue{handle: handle, runtime: rt, ownRuntime: ownRuntime}
	if rt.Debug != nil {
		control.RegisterQueueProbes(rt.Debug, q)
	}
	return q, nil
}

// Put blocks until data fits in the ring and commits it.
func (q *Queue) Put(data []byte) error {
	if err := q.handle.Put(data); err != nil {
		return err
	}
	q.record(1, 0, uint64(len(data)))
	return nil
}

// Get blocks until a message is available and returns a fresh copy.
func (q *Queue) Get() ([]byte, error) {
	data, err := q.handle.Get()
	if err != nil {
		return nil, err
	}
	q.record(0, 1, uint64(len(data)))
	return data, nil
}

func (q *Queue) record(puts, gets, bytes uint64) {
	if q.runtime == nil || q.runtime.Metrics == nil {
		return
	}
	q.runtime.Metrics.Record(control.QueueSample{Name: q.Name(), Puts: puts, Gets: gets, Bytes: bytes})
}

// Empty reports whether the queue currently holds no messages.
func (q *Queue) Empty() bool { return q.handle.Empty() }

// Full reports whether the queue cannot currently accept another
// minimal (one-byte-payload) message; Put rejects empty payloads.
func (q *Queue) Full() bool { return q.handle.Full() }

// Size returns the number of bytes currently occupied, including
// length prefixes.
func (q *Queue) Size() uint64 { return q.handle.Size() }

// Clear discards all pending messages.
func (q *Queue) Clear() error { return q.handle.Clear() }

// Head and Tail expose the ring's current byte offsets, and RefCount
// the live-handle count, for debug probe registration.
func (q *Queue) Head() uint64     { return q.handle.Head() }
func (q *Queue) Tail() uint64     { return q.handle.Tail() }
func (q *Queue) RefCount() uint32 { return q.handle.RefCount() }

// Name returns the normalized segment name without its leading slash.
func (q *Queue) Name() string { return q.handle.Name() }

// Capacity returns the segment's page-rounded capacity in bytes.
func (q *Queue) Capacity() uint64 { return q.handle.Capacity() }

// WasCreator reports whether this process created the segment rather
// than attaching to an existing one.
func (q *Queue) WasCreator() bool { return q.handle.WasCreator() }

// Close detaches this queue. The process whose detach observes the
// segment's refcount reach zero unlinks the kernel name (spec.md §3).
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	err := q.handle.Close()
	if q.ownRuntime {
		q.runtime.Close()
	}
	return err
}
