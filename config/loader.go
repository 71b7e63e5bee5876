package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "urlguard.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/urlguard"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"

	// EnvAddr overrides server.addr
	EnvAddr = "URLGUARD_ADDR"
	// EnvNATSURL overrides nats.url
	EnvNATSURL = "URLGUARD_NATS_URL"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger

	// ExplicitPath is loaded last when set (the --config flag).
	ExplicitPath string

	// home and workDir override the user home and working directory; tests
	// set them to temporary directories.
	home    string
	workDir string
	getenv  func(string) string

	sources []string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, getenv: os.Getenv}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/urlguard/config.yaml)
// 3. Project config (urlguard.yaml in current or parent directories)
// 4. Explicit config path
// 5. Environment variables (URLGUARD_ADDR, URLGUARD_NATS_URL)
//
// A missing explicit file is an error; missing user or project files are not.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()
	l.sources = nil

	// Load user config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if err := config.Overlay(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			l.sources = append(l.sources, userConfigPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if err := config.Overlay(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			l.sources = append(l.sources, projectConfigPath)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if l.ExplicitPath != "" {
		if err := config.Overlay(l.ExplicitPath); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", l.ExplicitPath))
		l.sources = append(l.sources, l.ExplicitPath)
	}

	config.Merge(l.envOverrides())

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// envOverrides reads the environment layer. Only listener settings can be
// set this way.
func (l *Loader) envOverrides() *Config {
	getenv := l.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	env := &Config{}
	env.Server.Addr = getenv(EnvAddr)
	env.NATS.URL = getenv(EnvNATSURL)
	if env.Server.Addr != "" || env.NATS.URL != "" {
		l.logger.Debug("Applied environment overrides", slog.String("addr", env.Server.Addr), slog.String("nats_url", env.NATS.URL))
	}
	return env
}

// Sources returns the files the last Load read, least specific first.
func (l *Loader) Sources() []string {
	return append([]string(nil), l.sources...)
}

// EnsureUserConfig creates the user config file with defaults if it doesn't
// exist and returns its path.
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil
	}

	if err := DefaultConfig().SaveToFile(userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return userConfigPath, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home := l.home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for urlguard.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
