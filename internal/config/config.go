// SPDX-License-Identifier: MIT

// Package config loads agent configuration from environment variables and
// an optional strict YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adobe/aepsdk-assurance-go/internal/urlutil"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by
// unknown keys. Use errors.Is(err, ErrUnknownConfigField) instead of string
// matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Config is the resolved agent configuration.
type Config struct {
	OrgID          string        `yaml:"orgId"`
	Environment    string        `yaml:"environment"`
	DataDir        string        `yaml:"dataDir"`
	ListenAddr     string        `yaml:"listenAddr"`
	LogLevel       string        `yaml:"logLevel"`
	AppName        string        `yaml:"appName"`
	AppVersion     string        `yaml:"appVersion"`
	ReconnectDelay time.Duration `yaml:"reconnectDelay"`
	PoolSize       int           `yaml:"poolSize"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Environment:    string(urlutil.EnvProd),
		ListenAddr:     "127.0.0.1:9630",
		LogLevel:       "info",
		AppName:        "assurance-agent",
		ReconnectDelay: 30 * time.Second,
		PoolSize:       2,
	}
}

// Load resolves configuration: defaults, then the YAML file at path (if
// non-empty), then environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = merge(cfg, fileCfg)
	}

	cfg.OrgID = ParseString("ASSURANCE_ORG_ID", cfg.OrgID)
	cfg.Environment = ParseString("ASSURANCE_ENVIRONMENT", cfg.Environment)
	cfg.DataDir = ParseString("ASSURANCE_DATA_DIR", cfg.DataDir)
	cfg.ListenAddr = ParseString("ASSURANCE_LISTEN", cfg.ListenAddr)
	cfg.LogLevel = ParseString("ASSURANCE_LOG_LEVEL", cfg.LogLevel)
	cfg.AppName = ParseString("ASSURANCE_APP_NAME", cfg.AppName)
	cfg.AppVersion = ParseString("ASSURANCE_APP_VERSION", cfg.AppVersion)
	cfg.ReconnectDelay = ParseDuration("ASSURANCE_RECONNECT_DELAY", cfg.ReconnectDelay)
	cfg.PoolSize = ParseInt("ASSURANCE_POOL_SIZE", cfg.PoolSize)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string) (Config, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return Config{}, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read file: %w", err)
	}

	// Strict mode: unknown fields cause errors. Durations arrive as strings
	// ("10s"), which yaml.v3 will not decode into time.Duration directly.
	var raw struct {
		OrgID          string `yaml:"orgId"`
		Environment    string `yaml:"environment"`
		DataDir        string `yaml:"dataDir"`
		ListenAddr     string `yaml:"listenAddr"`
		LogLevel       string `yaml:"logLevel"`
		AppName        string `yaml:"appName"`
		AppVersion     string `yaml:"appVersion"`
		ReconnectDelay string `yaml:"reconnectDelay"`
		PoolSize       int    `yaml:"poolSize"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return Config{}, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	fileCfg := Config{
		OrgID:       raw.OrgID,
		Environment: raw.Environment,
		DataDir:     raw.DataDir,
		ListenAddr:  raw.ListenAddr,
		LogLevel:    raw.LogLevel,
		AppName:     raw.AppName,
		AppVersion:  raw.AppVersion,
		PoolSize:    raw.PoolSize,
	}
	if raw.ReconnectDelay != "" {
		d, err := time.ParseDuration(raw.ReconnectDelay)
		if err != nil {
			return Config{}, fmt.Errorf("parse reconnectDelay: %w", err)
		}
		fileCfg.ReconnectDelay = d
	}
	return fileCfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.OrgID != "" {
		base.OrgID = overlay.OrgID
	}
	if overlay.Environment != "" {
		base.Environment = overlay.Environment
	}
	if overlay.DataDir != "" {
		base.DataDir = overlay.DataDir
	}
	if overlay.ListenAddr != "" {
		base.ListenAddr = overlay.ListenAddr
	}
	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}
	if overlay.AppName != "" {
		base.AppName = overlay.AppName
	}
	if overlay.AppVersion != "" {
		base.AppVersion = overlay.AppVersion
	}
	if overlay.ReconnectDelay != 0 {
		base.ReconnectDelay = overlay.ReconnectDelay
	}
	if overlay.PoolSize != 0 {
		base.PoolSize = overlay.PoolSize
	}
	return base
}

// Validate checks cross-field constraints. OrgID may be empty; the session
// falls back to the org recovered from a previously stored connection URL.
func (c Config) Validate() error {
	switch urlutil.Environment(c.Environment) {
	case urlutil.EnvProd, urlutil.EnvQA, urlutil.EnvStage, urlutil.EnvDev:
	default:
		return fmt.Errorf("invalid environment %q (expected prod, qa, stage, or dev)", c.Environment)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnectDelay must be > 0, got %v", c.ReconnectDelay)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("poolSize must be > 0, got %d", c.PoolSize)
	}
	return nil
}
