package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"connwatch/internal/monitor"
)

// Config represents configuration data for connwatch.
type Config struct {
	Addr        string `yaml:"addr"`
	HistorySize int    `yaml:"history_size"`
	Probe       Probe  `yaml:"probe"`
}

// Probe configures the reachability probe.
type Probe struct {
	Target          string `yaml:"target"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:8080",
		HistorySize: 256,
		Probe: Probe{
			Target:          monitor.DefaultTarget,
			IntervalSeconds: int(monitor.DefaultInterval / time.Second),
			TimeoutSeconds:  int(monitor.DefaultTimeout / time.Second),
		},
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaults.HistorySize
	}
	if strings.TrimSpace(cfg.Probe.Target) == "" {
		cfg.Probe.Target = defaults.Probe.Target
	}
	if cfg.Probe.IntervalSeconds <= 0 {
		cfg.Probe.IntervalSeconds = defaults.Probe.IntervalSeconds
	}
	if cfg.Probe.TimeoutSeconds <= 0 {
		cfg.Probe.TimeoutSeconds = defaults.Probe.TimeoutSeconds
	}
	if !strings.HasPrefix(cfg.Probe.Target, "http://") && !strings.HasPrefix(cfg.Probe.Target, "https://") {
		return Config{}, fmt.Errorf("probe target %q must be an http(s) URL", cfg.Probe.Target)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ObserverOptions converts the probe settings into monitor options.
func (c Config) ObserverOptions() monitor.Options {
	return monitor.Options{
		Target:      c.Probe.Target,
		Interval:    time.Duration(c.Probe.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(c.Probe.TimeoutSeconds) * time.Second,
		HistorySize: c.HistorySize,
	}
}
