package config

import (
	"sync/atomic"

	"github.com/c360studio/urlguard/urlsafety"
)

// Holder publishes the current configuration to concurrent readers. Writers
// replace the whole value; a stored *Config must not be mutated afterwards.
type Holder struct {
	current atomic.Pointer[Config]
}

// NewHolder returns a Holder containing cfg, or the defaults when cfg is nil.
func NewHolder(cfg *Config) *Holder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h := &Holder{}
	h.current.Store(cfg)
	return h
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Set replaces the current configuration.
func (h *Holder) Set(cfg *Config) {
	if cfg != nil {
		h.current.Store(cfg)
	}
}

// Policy returns the engine policy of the current configuration.
func (h *Holder) Policy() urlsafety.Policy {
	return h.Get().Policy()
}
