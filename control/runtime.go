// control/runtime.go
// Author: momentics <momentics@gmail.com>
//
// Runtime bundles the control-plane subsystems a queue or hyperqctl
// wires together: dynamic config, metrics, and debug probes. It
// mirrors the teacher's facade pattern of holding every adapter behind
// one struct field instead of threading each one through separately.

package control

import "time"

// Runtime bundles the config store, metrics registry, and debug probe
// registry package queue and cmd/hyperqctl share.
type Runtime struct {
	Config  *ConfigStore
	Metrics *MetricsRegistry
	Debug   *DebugProbes
}

// NewRuntime builds a Runtime seeded with DefaultQueueConfig, a live
// metrics flush worker, and an empty probe registry.
func NewRuntime() *Runtime {
	return &Runtime{
		Config:  NewDefaultConfigStore(),
		Metrics: NewMetricsRegistry(),
		Debug:   NewDebugProbes(),
	}
}

// Close stops the runtime's background workers (currently just the
// metrics flush goroutine).
func (rt *Runtime) Close() {
	rt.Metrics.Close()
}

// Capacity returns dflt if nonzero, otherwise the value of
// KeyDefaultCapacity from Config, falling back to dflt again if the
// key is absent or of the wrong type.
func (rt *Runtime) Capacity(dflt uint64) uint64 {
	if dflt != 0 {
		return dflt
	}
	if v, ok := rt.Config.Get(KeyDefaultCapacity); ok {
		if c, ok := v.(uint64); ok {
			return c
		}
	}
	return dflt
}

// NamePrefix returns dflt if non-empty, otherwise the value of
// KeyDefaultNamePrefix from Config.
func (rt *Runtime) NamePrefix(dflt string) string {
	if dflt != "" {
		return dflt
	}
	if v, ok := rt.Config.Get(KeyDefaultNamePrefix); ok {
		if p, ok := v.(string); ok {
			return p
		}
	}
	return dflt
}

// AttachTimeout returns dflt if nonzero, otherwise the value of
// KeyAttachTimeout from Config.
func (rt *Runtime) AttachTimeout(dflt time.Duration) time.Duration {
	if dflt != 0 {
		return dflt
	}
	if v, ok := rt.Config.Get(KeyAttachTimeout); ok {
		if t, ok := v.(time.Duration); ok {
			return t
		}
	}
	return dflt
}
