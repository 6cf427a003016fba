//go:build linux || darwin

// File: internal/shm/handle_test.go
// Author: momentics <momentics@gmail.com>
//
// Concrete scenarios qA-qE from spec.md §8, plus the conservation
// property under concurrent producers, all exercised in a single
// process against real POSIX shared memory (the OS makes no
// distinction between two handles in one process and two handles in
// two processes for shm_open/mmap purposes).

package shm

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScenarioA_SimpleRoundTrip(t *testing.T) {
	hnd, err := Open(Options{Name: "qA-" + uniqueName(""), Capacity: 4096})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hnd.Close()

	if err := hnd.Put([]byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := hnd.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get = %q, want %q", got, "hello")
	}
	if hnd.Size() != 0 {
		t.Errorf("Size after drain = %d, want 0", hnd.Size())
	}
}

func TestScenarioB_BlockingPutUnblocksOnGet(t *testing.T) {
	hnd, err := Open(Options{Name: "qB-" + uniqueName(""), Capacity: 4096})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hnd.Close()

	fill := make([]byte, 4092)
	for i := range fill {
		fill[i] = 'A'
	}
	if err := hnd.Put(fill); err != nil {
		t.Fatalf("Put(fill): %v", err)
	}

	putDone := make(chan error, 1)
	go func() {
		putDone <- hnd.Put([]byte("B"))
	}()

	select {
	case err := <-putDone:
		t.Fatalf("second Put returned before the queue drained: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	got, err := hnd.Get()
	if err != nil {
		t.Fatalf("Get(first): %v", err)
	}
	if len(got) != len(fill) {
		t.Fatalf("Get(first) length = %d, want %d", len(got), len(fill))
	}

	select {
	case err := <-putDone:
		if err != nil {
			t.Fatalf("second Put: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Put never unblocked after drain")
	}

	got, err = hnd.Get()
	if err != nil {
		t.Fatalf("Get(second): %v", err)
	}
	if string(got) != "B" {
		t.Errorf("Get(second) = %q, want %q", got, "B")
	}
}

func TestScenarioC_InterleavedPutsAndGetsPreserveOrderAndCount(t *testing.T) {
	hnd, err := Open(Options{Name: "qC-" + uniqueName(""), Capacity: 8192})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hnd.Close()

	const n = 1000
	want := make([][]byte, n)
	rng := rand.New(rand.NewSource(1))
	for i := range want {
		buf := make([]byte, 100)
		rng.Read(buf)
		want[i] = buf
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := hnd.Put(want[i]); err != nil {
				t.Errorf("Put(%d): %v", i, err)
				return
			}
		}
	}()

	var mismatches int32
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			got, err := hnd.Get()
			if err != nil {
				t.Errorf("Get(%d): %v", i, err)
				return
			}
			if string(got) != string(want[i]) {
				atomic.AddInt32(&mismatches, 1)
			}
		}
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for interleaved put/get")
	}
	if mismatches != 0 {
		t.Errorf("%d of %d messages did not round-trip in FIFO order", mismatches, n)
	}
}

func TestScenarioD_SecondHandleAttaches(t *testing.T) {
	name := "qD-" + uniqueName("")
	creator, err := Open(Options{Name: name, Capacity: 4096})
	if err != nil {
		t.Fatalf("Open(creator): %v", err)
	}
	if !creator.WasCreator() {
		t.Fatal("first Open should have created the segment")
	}

	attacher, err := Open(Options{Name: name})
	if err != nil {
		t.Fatalf("Open(attacher): %v", err)
	}
	if attacher.WasCreator() {
		t.Fatal("second Open should have attached, not created")
	}
	if attacher.Capacity() != creator.Capacity() {
		t.Errorf("attacher capacity = %d, want %d", attacher.Capacity(), creator.Capacity())
	}

	if err := creator.Put([]byte("from-creator")); err != nil {
		t.Fatalf("creator.Put: %v", err)
	}
	got, err := attacher.Get()
	if err != nil {
		t.Fatalf("attacher.Get: %v", err)
	}
	if string(got) != "from-creator" {
		t.Errorf("attacher.Get = %q, want from-creator", got)
	}

	if err := creator.Close(); err != nil {
		t.Fatalf("creator.Close: %v", err)
	}

	if err := attacher.Put([]byte("still-alive")); err != nil {
		t.Fatalf("attacher.Put after creator closed: %v", err)
	}
	got, err = attacher.Get()
	if err != nil || string(got) != "still-alive" {
		t.Fatalf("attacher still functional: got=%q err=%v", got, err)
	}

	if err := attacher.Close(); err != nil {
		t.Fatalf("attacher.Close: %v", err)
	}
}

func TestScenarioE_InvalidArguments(t *testing.T) {
	hnd, err := Open(Options{Name: "qE-" + uniqueName(""), Capacity: 4096})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hnd.Close()

	if err := hnd.Put(nil); err == nil {
		t.Error("Put(empty): expected invalid-argument error")
	}

	big := make([]byte, hnd.Capacity())
	if err := hnd.Put(big); err == nil {
		t.Error("Put(capacity-sized payload): expected message-too-large error")
	}

	tooLong := make([]byte, MaxNameLength+1)
	for i := range tooLong {
		tooLong[i] = 'x'
	}
	if _, err := Open(Options{Name: string(tooLong), Capacity: 4096}); err == nil {
		t.Error("Open(name too long): expected invalid-argument error")
	}
}

func TestConservationUnderConcurrentProducers(t *testing.T) {
	hnd, err := Open(Options{Name: "cons-" + uniqueName(""), Capacity: 16384})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hnd.Close()

	const producers = 8
	const perProducer = 200
	var sent, received int64

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				msg := []byte(fmt.Sprintf("p%d-m%d", id, i))
				if err := hnd.Put(msg); err != nil {
					t.Errorf("Put: %v", err)
					return
				}
				atomic.AddInt64(&sent, int64(len(msg)))
			}
		}(p)
	}

	total := producers * perProducer
	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			got, err := hnd.Get()
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			atomic.AddInt64(&received, int64(len(got)))
		}
		close(done)
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out draining consumer")
	}

	if sent != received {
		t.Errorf("byte conservation violated: sent %d, received %d", sent, received)
	}
	if !hnd.Empty() {
		t.Errorf("queue not empty after full drain, size=%d", hnd.Size())
	}
}
