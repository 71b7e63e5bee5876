package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder(t *testing.T) {
	h := NewHolder(nil)
	assert.Equal(t, DefaultConfig(), h.Get())

	cfg := DefaultConfig()
	cfg.Image.BlockLocalhost = false
	h.Set(cfg)
	assert.Same(t, cfg, h.Get())
	assert.True(t, h.Policy().Image.AllowLocalhost)

	h.Set(nil)
	assert.Same(t, cfg, h.Get(), "nil must not replace the current config")
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h := NewHolder(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Set(DefaultConfig())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = h.Policy()
			}
		}()
	}
	wg.Wait()
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urlguard.yaml")
	writeFile(t, path, "server:\n  addr: \":7000\"\n")

	holder := NewHolder(nil)
	w, err := NewWatcher([]string{path}, func() (*Config, error) { return LoadFromFile(path) }, holder, nil)
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	reloaded := make(chan *Config, 4)
	w.OnReload = func(c *Config) { reloaded <- c }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, path, "server:\n  addr: \":7001\"\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ":7001", cfg.Server.Addr)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
	assert.Equal(t, ":7001", holder.Get().Server.Addr)
	assert.GreaterOrEqual(t, w.Reloads(), int64(1))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urlguard.yaml")
	writeFile(t, path, "")

	w, err := NewWatcher([]string{path}, func() (*Config, error) { return DefaultConfig(), nil }, NewHolder(nil), nil)
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(0), w.Reloads())

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_RejectedReloadKeepsPrevious(t *testing.T) {
	current := DefaultConfig()
	holder := NewHolder(current)

	w, err := NewWatcher(nil, func() (*Config, error) { return nil, errors.New("scan.workers must be at least 1") }, holder, nil)
	require.NoError(t, err)
	defer w.fsw.Close()

	w.apply()
	assert.Same(t, current, holder.Get())
	assert.Equal(t, int64(1), w.Failures())
	assert.Equal(t, int64(0), w.Reloads())
}
