package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestLoader(t *testing.T) (*Loader, string, string) {
	t.Helper()
	home := t.TempDir()
	work := filepath.Join(t.TempDir(), "project", "sub")
	require.NoError(t, os.MkdirAll(work, 0755))

	l := NewLoader(nil)
	l.home = home
	l.workDir = work
	l.getenv = func(string) string { return "" }
	return l, home, work
}

func TestLoader_DefaultsOnly(t *testing.T) {
	l, _, _ := newTestLoader(t)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Empty(t, l.Sources())
}

func TestLoader_LayerPrecedence(t *testing.T) {
	l, home, work := newTestLoader(t)

	userPath := filepath.Join(home, UserConfigDir, UserConfigFile)
	writeFile(t, userPath, "server:\n  addr: \":7000\"\nlink:\n  allow_tel: false\n")

	// Project config is found in a parent directory.
	projectPath := filepath.Join(filepath.Dir(work), ProjectConfigFile)
	writeFile(t, projectPath, "server:\n  addr: \":7100\"\nimage:\n  block_localhost: false\n")

	explicitPath := filepath.Join(t.TempDir(), "explicit.yaml")
	writeFile(t, explicitPath, "scan:\n  workers: 1\n")
	l.ExplicitPath = explicitPath

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.Server.Addr, "project overrides user")
	assert.False(t, cfg.Link.AllowTel, "user setting survives when not overridden")
	assert.False(t, cfg.Image.BlockLocalhost)
	assert.True(t, cfg.Image.BlockPrivateIPs)
	assert.Equal(t, 1, cfg.Scan.Workers)
	assert.Equal(t, []string{userPath, projectPath, explicitPath}, l.Sources())
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	l, _, _ := newTestLoader(t)
	l.ExplicitPath = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := l.Load()
	assert.Error(t, err)
}

func TestLoader_InvalidResult(t *testing.T) {
	l, _, work := newTestLoader(t)
	writeFile(t, filepath.Join(work, ProjectConfigFile), "scan:\n  workers: 0\n")

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan.workers")
}

func TestLoader_BrokenUserConfigIsSkipped(t *testing.T) {
	l, home, _ := newTestLoader(t)
	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), "link: [")

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8089", cfg.Server.Addr)
}

func TestLoader_EnsureUserConfig(t *testing.T) {
	l, home, _ := newTestLoader(t)

	path, err := l.EnsureUserConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, UserConfigDir, UserConfigFile), path)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	// Existing files are left alone.
	writeFile(t, path, "server:\n  addr: \":1234\"\n")
	_, err = l.EnsureUserConfig()
	require.NoError(t, err)
	cfg, err = LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Server.Addr)
}

func TestLoader_EnvironmentOverridesFiles(t *testing.T) {
	l, _, work := newTestLoader(t)
	writeFile(t, filepath.Join(work, ProjectConfigFile), "server:\n  addr: \":7000\"\nnats:\n  embedded: true\n")
	env := map[string]string{EnvAddr: "127.0.0.1:9000", EnvNATSURL: "nats://broker:4222"}
	l.getenv = func(k string) string { return env[k] }

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.False(t, cfg.NATS.Embedded, "an explicit NATS URL replaces the embedded server")
}
