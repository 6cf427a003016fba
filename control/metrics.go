// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring.
// Exposes counters in a thread-safe map with dynamic registration.
// Per-queue snapshots are merged asynchronously by a single flush
// worker draining an eapache/queue FIFO, the same shape the teacher's
// NUMA-aware task executor uses for dispatching work.

package control

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// QueueSample is one put/get observation for a named queue, submitted
// from the hot Put/Get path without blocking on the registry's lock.
type QueueSample struct {
	Name  string
	Puts  uint64
	Gets  uint64
	Bytes uint64
}

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time

	flushMu sync.Mutex
	flush   *queue.Queue
	notify  chan struct{}
	stop    chan struct{}
}

// NewMetricsRegistry creates an empty registry and starts its
// background flush worker.
func NewMetricsRegistry() *MetricsRegistry {
	mr := &MetricsRegistry{
		metrics: make(map[string]any),
		flush:   queue.New(),
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	go mr.run()
	return mr
}

// Set sets or updates a metric key directly, bypassing the flush queue.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Record submits a queue sample for asynchronous merge. It never
// blocks the caller on the registry lock.
func (mr *MetricsRegistry) Record(s QueueSample) {
	mr.flushMu.Lock()
	mr.flush.Enqueue(s)
	mr.flushMu.Unlock()
	select {
	case mr.notify <- struct{}{}:
	default:
	}
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Close stops the flush worker.
func (mr *MetricsRegistry) Close() {
	close(mr.stop)
}

// run drains the sample FIFO and merges each sample into per-queue
// put/get/byte counters. One worker, matching the executor's
// one-goroutine-per-queue-drain shape.
func (mr *MetricsRegistry) run() {
	for {
		select {
		case <-mr.stop:
			return
		case <-mr.notify:
			mr.drain()
		}
	}
}

func (mr *MetricsRegistry) drain() {
	for {
		mr.flushMu.Lock()
		item, ok := mr.flush.Dequeue()
		mr.flushMu.Unlock()
		if !ok {
			return
		}

		s, ok := item.(QueueSample)
		if !ok {
			continue
		}
		mr.mergeSample(s)
	}
}

func (mr *MetricsRegistry) mergeSample(s QueueSample) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.updated = time.Now()
	mr.addUint64(s.Name+".puts", s.Puts)
	mr.addUint64(s.Name+".gets", s.Gets)
	mr.addUint64(s.Name+".bytes", s.Bytes)
}

// addUint64 accumulates onto an existing counter, assuming the caller
// already holds mr.mu.
func (mr *MetricsRegistry) addUint64(key string, delta uint64) {
	cur, _ := mr.metrics[key].(uint64)
	mr.metrics[key] = cur + delta
}
