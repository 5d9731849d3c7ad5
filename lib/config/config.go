// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable read by Load.
const EnvVar = "WHITEBOARD_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Storage backend names.
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// Config is the master configuration.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Worker configures the client side: where the worker lives and
	// how the asset store and bookmark resolver talk to it.
	Worker WorkerConfig `yaml:"worker"`

	// Server configures the reference worker's HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Storage configures where the reference worker keeps uploads.
	Storage StorageConfig `yaml:"storage"`

	// Unfurl configures how the reference worker fetches pages.
	Unfurl UnfurlConfig `yaml:"unfurl"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	LogLevel string         `yaml:"log_level,omitempty"`
	Worker   *WorkerConfig  `yaml:"worker,omitempty"`
	Server   *ServerConfig  `yaml:"server,omitempty"`
	Storage  *StorageConfig `yaml:"storage,omitempty"`
	Unfurl   *UnfurlConfig  `yaml:"unfurl,omitempty"`
}

// WorkerConfig configures the client's view of the worker.
type WorkerConfig struct {
	// Endpoint is the worker base URL.
	// Default: http://localhost:5858
	Endpoint string `yaml:"endpoint"`

	// Room is the whiteboard room used to build the sync connection
	// URI. Optional.
	Room string `yaml:"room"`

	// RequestTimeout bounds each client request, e.g. "30s". Empty or
	// "0" means no timeout: callers bound requests with their context.
	RequestTimeout string `yaml:"request_timeout"`

	// CoalesceUnfurl shares one in-flight unfurl request between
	// concurrent callers asking for the same URL.
	CoalesceUnfurl bool `yaml:"coalesce_unfurl"`
}

// ServerConfig configures the reference worker's listener.
type ServerConfig struct {
	// Address is the TCP listen address.
	// Default: :5858
	Address string `yaml:"address"`

	// MaxUploadBytes bounds a single upload body.
	// Default: 64 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// ShutdownTimeout is how long in-flight requests may run after a
	// shutdown signal.
	// Default: 10s
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the upload backend.
type StorageConfig struct {
	// Backend is "filesystem" or "s3".
	// Default: filesystem
	Backend string `yaml:"backend"`

	// Root is the filesystem backend's directory.
	Root string `yaml:"root"`

	// S3 configures the s3 backend.
	S3 S3Config `yaml:"s3"`
}

// S3Config configures an S3-compatible bucket (AWS, MinIO, R2).
type S3Config struct {
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every object key, e.g. "uploads/".
	Prefix string `yaml:"prefix"`

	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	// Path-style addressing is used when set.
	Endpoint string `yaml:"endpoint"`

	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`

	// DisableHTTPS is for local MinIO.
	DisableHTTPS bool `yaml:"disable_https"`
}

// UnfurlConfig configures page fetching for the unfurl endpoint.
type UnfurlConfig struct {
	// UserAgent is sent with page requests.
	UserAgent string `yaml:"user_agent"`

	// MaxBytes bounds how much of a page is parsed.
	// Default: 2 MiB
	MaxBytes int64 `yaml:"max_bytes"`

	// FetchTimeout bounds a single page fetch.
	// Default: 10s
	FetchTimeout string `yaml:"fetch_timeout"`

	// AllowPrivateNetworks lets the worker unfurl loopback, private,
	// and link-local addresses. Off by default: otherwise /unfurl
	// would relay any page reachable from the worker's network. Only
	// enable it for a worker that is itself private.
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

// Default returns the default configuration. These values are the base
// the config file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Worker: WorkerConfig{
			Endpoint: "http://localhost:5858",
		},
		Server: ServerConfig{
			Address:         ":5858",
			MaxUploadBytes:  64 << 20,
			ShutdownTimeout: "10s",
		},
		Storage: StorageConfig{
			Backend: BackendFilesystem,
			Root:    filepath.Join(homeDir, ".cache", "whiteboard", "uploads"),
		},
		Unfurl: UnfurlConfig{
			UserAgent:    "whiteboard-unfurl/1.0",
			MaxBytes:     2 << 20,
			FetchTimeout: "10s",
		},
	}
}

// Load loads configuration from the file named by WHITEBOARD_CONFIG.
// Fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your whiteboard.yaml config file, or use --config flag", EnvVar)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies the
// section for the configured environment, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so the stripped document goes
		// through the same decoder.
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{LogLevel: "warn"}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}

	if overrides.Worker != nil {
		if overrides.Worker.Endpoint != "" {
			c.Worker.Endpoint = overrides.Worker.Endpoint
		}
		if overrides.Worker.Room != "" {
			c.Worker.Room = overrides.Worker.Room
		}
		if overrides.Worker.RequestTimeout != "" {
			c.Worker.RequestTimeout = overrides.Worker.RequestTimeout
		}
		// CoalesceUnfurl is a bool, so the section always decides it.
		c.Worker.CoalesceUnfurl = overrides.Worker.CoalesceUnfurl
	}

	if overrides.Server != nil {
		if overrides.Server.Address != "" {
			c.Server.Address = overrides.Server.Address
		}
		if overrides.Server.MaxUploadBytes != 0 {
			c.Server.MaxUploadBytes = overrides.Server.MaxUploadBytes
		}
		if overrides.Server.ShutdownTimeout != "" {
			c.Server.ShutdownTimeout = overrides.Server.ShutdownTimeout
		}
	}

	if overrides.Storage != nil {
		if overrides.Storage.Backend != "" {
			c.Storage.Backend = overrides.Storage.Backend
		}
		if overrides.Storage.Root != "" {
			c.Storage.Root = overrides.Storage.Root
		}
		s3 := overrides.Storage.S3
		if s3.Bucket != "" {
			c.Storage.S3.Bucket = s3.Bucket
		}
		if s3.Prefix != "" {
			c.Storage.S3.Prefix = s3.Prefix
		}
		if s3.Endpoint != "" {
			c.Storage.S3.Endpoint = s3.Endpoint
		}
		if s3.AccessKeyID != "" {
			c.Storage.S3.AccessKeyID = s3.AccessKeyID
		}
		if s3.AccessKeySecret != "" {
			c.Storage.S3.AccessKeySecret = s3.AccessKeySecret
		}
	}

	if overrides.Unfurl != nil {
		if overrides.Unfurl.UserAgent != "" {
			c.Unfurl.UserAgent = overrides.Unfurl.UserAgent
		}
		if overrides.Unfurl.MaxBytes != 0 {
			c.Unfurl.MaxBytes = overrides.Unfurl.MaxBytes
		}
		if overrides.Unfurl.FetchTimeout != "" {
			c.Unfurl.FetchTimeout = overrides.Unfurl.FetchTimeout
		}
		c.Unfurl.AllowPrivateNetworks = overrides.Unfurl.AllowPrivateNetworks
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Storage.Root = expandVars(c.Storage.Root, vars)
	c.Storage.S3.AccessKeyID = expandVars(c.Storage.S3.AccessKeyID, vars)
	c.Storage.S3.AccessKeySecret = expandVars(c.Storage.S3.AccessKeySecret, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	if err := validateEndpoint(c.Worker.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("worker.endpoint: %w", err))
	}
	if err := validateDuration(c.Worker.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("worker.request_timeout: %w", err))
	}

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if err := validateDuration(c.Server.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout: %w", err))
	}

	switch c.Storage.Backend {
	case BackendFilesystem:
		if c.Storage.Root == "" {
			errs = append(errs, errors.New("storage.root is required for the filesystem backend"))
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 backend"))
		}
		if (c.Storage.S3.AccessKeyID == "") != (c.Storage.S3.AccessKeySecret == "") {
			errs = append(errs, errors.New("storage.s3.access_key_id and access_key_secret must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of: %v",
			[]string{BackendFilesystem, BackendS3}))
	}

	if c.Unfurl.MaxBytes <= 0 {
		errs = append(errs, errors.New("unfurl.max_bytes must be positive"))
	}
	if err := validateDuration(c.Unfurl.FetchTimeout); err != nil {
		errs = append(errs, fmt.Errorf("unfurl.fetch_timeout: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel returns the configured log level, or info if it does not
// parse.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Timeout returns RequestTimeout as a duration. Zero means none.
func (w WorkerConfig) Timeout() time.Duration {
	return parseDuration(w.RequestTimeout)
}

// ShutdownDuration returns ShutdownTimeout as a duration.
func (s ServerConfig) ShutdownDuration() time.Duration {
	return parseDuration(s.ShutdownTimeout)
}

// FetchDuration returns FetchTimeout as a duration.
func (u UnfurlConfig) FetchDuration() time.Duration {
	return parseDuration(u.FetchTimeout)
}

// parseDuration returns zero for empty or invalid values; Validate
// reports invalid ones.
func parseDuration(value string) time.Duration {
	if value == "" {
		return 0
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return duration
}

func validateDuration(value string) error {
	if value == "" {
		return nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if duration < 0 {
		return fmt.Errorf("negative duration %s", value)
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("must be http or https (got %q)", endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("has no host (got %q)", endpoint)
	}
	return nil
}

// EnsurePaths creates the filesystem storage root if that backend is
// selected.
func (c *Config) EnsurePaths() error {
	if c.Storage.Backend != BackendFilesystem || c.Storage.Root == "" {
		return nil
	}
	if err := os.MkdirAll(c.Storage.Root, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Storage.Root, err)
	}
	return nil
}
