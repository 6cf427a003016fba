// Package shm implements the shared-memory ring buffer engine behind
// HyperQ: named POSIX shared memory, the double-virtual-mapping trick,
// process-shared synchronization, and the enqueue/dequeue algorithms.
//
// Consumers of this module should not import shm directly; the public
// surface is the bytes facade in package queue. shm.Handle exists at
// this layer because the engine, not the facade, owns segment
// creation, attachment, and refcounted teardown.
package shm
