// Package config provides configuration loading and management for urlguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/urlguard/urlsafety"
)

// Config represents the complete urlguard configuration
type Config struct {
	Link   LinkPolicyConfig  `yaml:"link"`
	Image  ImagePolicyConfig `yaml:"image"`
	Server ServerConfig      `yaml:"server"`
	NATS   NATSConfig        `yaml:"nats"`
	Scan   ScanConfig        `yaml:"scan"`
}

// LinkPolicyConfig configures which schemes are accepted as link targets.
// http and https are always accepted.
type LinkPolicyConfig struct {
	AllowMailto bool `yaml:"allow_mailto"`
	AllowTel    bool `yaml:"allow_tel"`
}

// ImagePolicyConfig configures image and file source validation
type ImagePolicyConfig struct {
	AllowDataURLs      bool `yaml:"allow_data_urls"`
	AllowBlobURLs      bool `yaml:"allow_blob_urls"`
	BlockPrivateIPs    bool `yaml:"block_private_ips"`
	BlockLocalhost     bool `yaml:"block_localhost"`
	BlockCloudMetadata bool `yaml:"block_cloud_metadata"`
}

// ServerConfig configures the HTTP validation API
type ServerConfig struct {
	// Addr is the listen address (default: ":8089")
	Addr string `yaml:"addr"`
	// Prefix is the path prefix for the validation endpoints
	Prefix string `yaml:"prefix"`
	// ReadTimeout bounds reading a request, including its body
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout bounds writing a response
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxBodyBytes limits request bodies; larger requests get 413
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// MaxBatch limits the number of URLs in one batch request
	MaxBatch int `yaml:"max_batch"`
}

// NATSConfig configures the NATS request/reply responder
type NATSConfig struct {
	// URL is the NATS server URL (empty = responder disabled unless Embedded)
	URL string `yaml:"url"`
	// Embedded runs an in-process NATS server for local use; URL is ignored
	Embedded bool `yaml:"embedded"`
	// SubjectPrefix is prepended to the link, image and ssrf subjects
	SubjectPrefix string `yaml:"subject_prefix"`
	// Queue is the queue group shared by responder instances
	Queue string `yaml:"queue"`
}

// ScanConfig configures the content scanner
type ScanConfig struct {
	// Include lists doublestar patterns of files to scan
	Include []string `yaml:"include"`
	// Exclude lists doublestar patterns of files to skip
	Exclude []string `yaml:"exclude"`
	// Workers is the number of files scanned concurrently
	Workers int `yaml:"workers"`
}

// Enabled reports whether the NATS responder should run.
func (n NATSConfig) Enabled() bool {
	return n.URL != "" || n.Embedded
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Link: LinkPolicyConfig{
			AllowMailto: true,
			AllowTel:    true,
		},
		Image: ImagePolicyConfig{
			AllowDataURLs:      true,
			AllowBlobURLs:      true,
			BlockPrivateIPs:    true,
			BlockLocalhost:     true,
			BlockCloudMetadata: true,
		},
		Server: ServerConfig{
			Addr:         ":8089",
			Prefix:       "/api/urlguard",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			MaxBodyBytes: 1 << 20,
			MaxBatch:     500,
		},
		NATS: NATSConfig{
			URL:           "", // Disabled
			SubjectPrefix: "urlguard.validate",
			Queue:         "urlguard",
		},
		Scan: ScanConfig{
			Include: []string{"**/*.html", "**/*.htm", "**/*.md", "**/*.markdown", "**/*.json"},
			Exclude: []string{"**/node_modules/**", "**/.git/**", "**/vendor/**"},
			Workers: 8,
		},
	}
}

// Policy converts the link and image sections into an engine policy.
func (c *Config) Policy() urlsafety.Policy {
	return urlsafety.Policy{
		Link: urlsafety.LinkOptions{
			DisableMailto: !c.Link.AllowMailto,
			DisableTel:    !c.Link.AllowTel,
		},
		Image: urlsafety.ImageOptions{
			DisableDataURLs:    !c.Image.AllowDataURLs,
			DisableBlobURLs:    !c.Image.AllowBlobURLs,
			AllowPrivateIPs:    !c.Image.BlockPrivateIPs,
			AllowLocalhost:     !c.Image.BlockLocalhost,
			AllowCloudMetadata: !c.Image.BlockCloudMetadata,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.Prefix != "" && !strings.HasPrefix(c.Server.Prefix, "/") {
		return fmt.Errorf("server.prefix must start with /")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Server.MaxBatch <= 0 {
		return fmt.Errorf("server.max_batch must be positive")
	}
	if c.NATS.Enabled() && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("nats.subject_prefix is required when nats is enabled")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	for _, p := range c.Scan.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("scan.include: invalid pattern %q", p)
		}
	}
	for _, p := range c.Scan.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("scan.exclude: invalid pattern %q", p)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.Overlay(path); err != nil {
		return nil, err
	}
	return config, nil
}

// Overlay decodes the YAML file at path onto c. Keys absent from the file
// keep their current value, which is how config layers stack.
func (c *Config) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config's transport and scan settings into this one
// (other takes precedence for non-zero values). Policy booleans are not
// merged: a false value cannot be told apart from an unset one, so policy
// layers go through Overlay instead.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.Prefix != "" {
		c.Server.Prefix = other.Server.Prefix
	}
	if other.Server.ReadTimeout != 0 {
		c.Server.ReadTimeout = other.Server.ReadTimeout
	}
	if other.Server.WriteTimeout != 0 {
		c.Server.WriteTimeout = other.Server.WriteTimeout
	}
	if other.Server.MaxBodyBytes != 0 {
		c.Server.MaxBodyBytes = other.Server.MaxBodyBytes
	}
	if other.Server.MaxBatch != 0 {
		c.Server.MaxBatch = other.Server.MaxBatch
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.Embedded {
		c.NATS.Embedded = true
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}
	if other.NATS.Queue != "" {
		c.NATS.Queue = other.NATS.Queue
	}

	// Scan
	if len(other.Scan.Include) > 0 {
		c.Scan.Include = other.Scan.Include
	}
	if len(other.Scan.Exclude) > 0 {
		c.Scan.Exclude = other.Scan.Exclude
	}
	if other.Scan.Workers != 0 {
		c.Scan.Workers = other.Scan.Workers
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Scan.Include = append([]string(nil), c.Scan.Include...)
	out.Scan.Exclude = append([]string(nil), c.Scan.Exclude...)
	return &out
}
