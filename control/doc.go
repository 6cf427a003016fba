// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug introspection
// layer for hyperqctl and for hosts embedding package queue. None of this
// touches the engine's shared-memory path directly; it observes and
// configures it from the outside.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates for queue defaults
//   - Runtime observers for hot-reload
//   - Per-queue put/get/byte counters, flushed asynchronously
//   - State export, debug hooks, and probe registration (size/head/tail/refcount)
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
