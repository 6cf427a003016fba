// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"sync"
	"time"
)

// Default keys read by package queue and cmd/hyperqctl when
// queue.Config leaves a field at its zero value.
const (
	KeyDefaultCapacity   = "default_capacity"
	KeyDefaultNamePrefix = "default_name_prefix"
	KeyAttachTimeout     = "attach_timeout"
)

// DefaultQueueConfig seeds a ConfigStore with HyperQ's baseline
// defaults, mirroring spec.md §4.2's suggested capacity and the
// engine's attach spin-wait bound.
func DefaultQueueConfig() map[string]any {
	return map[string]any{
		KeyDefaultCapacity:   uint64(1 << 20), // 1 MiB
		KeyDefaultNamePrefix: "hq-",
		KeyAttachTimeout:     2 * time.Second,
	}
}

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// NewDefaultConfigStore initializes a config store pre-seeded with
// DefaultQueueConfig.
func NewDefaultConfigStore() *ConfigStore {
	cs := NewConfigStore()
	cs.SetConfig(DefaultQueueConfig())
	return cs
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	copy := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		copy[k] = v
	}
	return copy
}

// Get returns a single config value and whether it was present.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig merges new values and dispatches reload if needed.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	cs.mu.Unlock()
	cs.dispatchReload()
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes this store's own listeners and the process-wide
// hot-reload hooks registered via RegisterReloadHook, so a single config
// change can fan out to components that never saw this particular store.
func (cs *ConfigStore) dispatchReload() {
	cs.mu.RLock()
	listeners := cs.listeners
	cs.mu.RUnlock()
	for _, fn := range listeners {
		go fn()
	}
	TriggerHotReload()
}
