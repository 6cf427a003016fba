//go:build linux || darwin

// File: queue/queue_test.go
// Author: momentics <momentics@gmail.com>

package queue

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hyperq/control"
)

func TestOpenPutGetRoundTrip(t *testing.T) {
	q, err := Open(&Config{Name: "qt-" + testUniqueSuffix(t), Capacity: 4096}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	if err := q.Put([]byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := q.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get = %q, want payload", got)
	}
	if !q.Empty() {
		t.Error("Empty() = false after full drain")
	}
}

func TestOpenRecordsMetrics(t *testing.T) {
	rt := control.NewRuntime()
	defer rt.Close()

	q, err := Open(&Config{Name: "qm-" + testUniqueSuffix(t), Capacity: 4096}, rt)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	if err := q.Put([]byte("abc")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := q.Get(); err != nil {
		t.Fatalf("Get: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := rt.Metrics.GetSnapshot()
		puts, _ := snap[q.Name()+".puts"].(uint64)
		gets, _ := snap[q.Name()+".gets"].(uint64)
		if puts == 1 && gets == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics never reflected the put/get: %+v", snap)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDefaultConfigSourcesCapacityFromRuntime(t *testing.T) {
	rt := control.NewRuntime()
	defer rt.Close()

	if got := rt.Capacity(0); got == 0 {
		t.Error("runtime's default capacity should be nonzero")
	}

	rt.Config.SetConfig(map[string]any{control.KeyDefaultCapacity: uint64(8192)})
	if got := rt.Capacity(0); got != 8192 {
		t.Errorf("rt.Capacity(0) = %d, want 8192 after SetConfig", got)
	}
	if got := rt.Capacity(4096); got != 4096 {
		t.Errorf("rt.Capacity(4096) = %d, want 4096 (explicit cfg wins)", got)
	}
}

func TestOpenUsesRuntimeNamePrefix(t *testing.T) {
	rt := control.NewRuntime()
	defer rt.Close()
	rt.Config.SetConfig(map[string]any{control.KeyDefaultNamePrefix: "qp-"})

	q, err := Open(&Config{Capacity: 4096}, rt)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	if !strings.HasPrefix(q.Name(), "qp-") {
		t.Errorf("Name() = %q, want runtime-configured prefix", q.Name())
	}
}

func TestOpenRegistersQueueProbes(t *testing.T) {
	rt := control.NewRuntime()
	defer rt.Close()

	q, err := Open(&Config{Name: "qd-" + testUniqueSuffix(t), Capacity: 4096}, rt)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer q.Close()

	if err := q.Put([]byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	state := rt.Debug.DumpState()
	prefix := "queue." + q.Name() + "."
	for _, probe := range []string{"size", "head", "tail", "refcount", "capacity", "creator"} {
		if _, ok := state[prefix+probe]; !ok {
			t.Errorf("DumpState missing probe %q: %+v", prefix+probe, state)
		}
	}
}

func testUniqueSuffix(t *testing.T) string {
	t.Helper()
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
