// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config for YAML decoding. Durations are strings in the
// file (e.g. "15m"), matching the teacher's convention of keeping duration
// fields as parseable strings in YAML rather than relying on yaml.v3's
// scalar-to-int64 coercion for time.Duration.
type yamlConfig struct {
	HoldTTL                   string `yaml:"holdTTL"`
	ConfirmTokenTTL           string `yaml:"confirmTokenTTL"`
	TickerInterval            string `yaml:"tickerInterval"`
	TickerPageSize            int    `yaml:"tickerPageSize"`
	CascadeFanoutK            int    `yaml:"cascadeFanoutK"`
	MaxActiveEntriesPerPhone  int    `yaml:"maxActiveEntriesPerPhone"`
	NotifyMaxAttempts         int    `yaml:"notifyMaxAttempts"`
	CalendarReconcileInterval string `yaml:"calendarReconcileInterval"`
	CalendarReconcilePageSize int    `yaml:"calendarReconcilePageSize"`
	OutboxPollInterval        string `yaml:"outboxPollInterval"`
	OutboxPageSize            int    `yaml:"outboxPageSize"`
	ListenAddr                string `yaml:"listenAddr"`
	MetricsAddr               string `yaml:"metricsAddr"`
	StoreDSN                  string `yaml:"storeDSN"`
	OutboxDir                 string `yaml:"outboxDir"`
	RedisAddr                 string `yaml:"redisAddr"`
	RateLimitEnabled          *bool  `yaml:"rateLimitEnabled"`
	RateLimitPerPhonePerMin   int    `yaml:"rateLimitPerPhonePerMin"`
	TracingEnabled            *bool    `yaml:"tracingEnabled"`
	TracingServiceName        string   `yaml:"tracingServiceName"`
	ServiceVersion            string   `yaml:"serviceVersion"`
	Environment               string   `yaml:"environment"`
	TracingExporterType       string   `yaml:"tracingExporterType"`
	TracingEndpoint           string   `yaml:"tracingEndpoint"`
	TracingSamplingRate       *float64 `yaml:"tracingSamplingRate"`
}

// applyYAML overlays any fields present in y onto cfg, leaving cfg's value
// (already seeded with Defaults()) in place for anything y omits or fails
// to parse.
func applyYAML(cfg Config, y yamlConfig) Config {
	if d, err := time.ParseDuration(y.HoldTTL); err == nil {
		cfg.HoldTTL = d
	}
	if d, err := time.ParseDuration(y.ConfirmTokenTTL); err == nil {
		cfg.ConfirmTokenTTL = d
	}
	if d, err := time.ParseDuration(y.TickerInterval); err == nil {
		cfg.TickerInterval = d
	}
	if d, err := time.ParseDuration(y.CalendarReconcileInterval); err == nil {
		cfg.CalendarReconcileInterval = d
	}
	if d, err := time.ParseDuration(y.OutboxPollInterval); err == nil {
		cfg.OutboxPollInterval = d
	}
	if y.TickerPageSize != 0 {
		cfg.TickerPageSize = y.TickerPageSize
	}
	if y.CascadeFanoutK != 0 {
		cfg.CascadeFanoutK = y.CascadeFanoutK
	}
	if y.MaxActiveEntriesPerPhone != 0 {
		cfg.MaxActiveEntriesPerPhone = y.MaxActiveEntriesPerPhone
	}
	if y.NotifyMaxAttempts != 0 {
		cfg.NotifyMaxAttempts = y.NotifyMaxAttempts
	}
	if y.CalendarReconcilePageSize != 0 {
		cfg.CalendarReconcilePageSize = y.CalendarReconcilePageSize
	}
	if y.OutboxPageSize != 0 {
		cfg.OutboxPageSize = y.OutboxPageSize
	}
	if y.ListenAddr != "" {
		cfg.ListenAddr = y.ListenAddr
	}
	if y.MetricsAddr != "" {
		cfg.MetricsAddr = y.MetricsAddr
	}
	if y.StoreDSN != "" {
		cfg.StoreDSN = y.StoreDSN
	}
	if y.OutboxDir != "" {
		cfg.OutboxDir = y.OutboxDir
	}
	if y.RedisAddr != "" {
		cfg.RedisAddr = y.RedisAddr
	}
	if y.RateLimitEnabled != nil {
		cfg.RateLimitEnabled = *y.RateLimitEnabled
	}
	if y.RateLimitPerPhonePerMin != 0 {
		cfg.RateLimitPerPhonePerMin = y.RateLimitPerPhonePerMin
	}
	if y.TracingEnabled != nil {
		cfg.TracingEnabled = *y.TracingEnabled
	}
	if y.TracingServiceName != "" {
		cfg.TracingServiceName = y.TracingServiceName
	}
	if y.ServiceVersion != "" {
		cfg.ServiceVersion = y.ServiceVersion
	}
	if y.Environment != "" {
		cfg.Environment = y.Environment
	}
	if y.TracingExporterType != "" {
		cfg.TracingExporterType = y.TracingExporterType
	}
	if y.TracingEndpoint != "" {
		cfg.TracingEndpoint = y.TracingEndpoint
	}
	if y.TracingSamplingRate != nil {
		cfg.TracingSamplingRate = *y.TracingSamplingRate
	}
	return cfg
}

// Loader loads a Config from an optional YAML file plus ENV overrides,
// matching the teacher's Loader precedence: ENV > File > Defaults.
type Loader struct {
	configPath string
}

// NewLoader returns a Loader that reads configPath if non-empty. An empty
// configPath means ENV-only configuration.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load builds a Config from defaults, then an optional YAML file, then ENV
// overrides, then validates the result.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile()
		if err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
		cfg = fileCfg
	}

	cfg = applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadFile reads l.configPath as YAML, overlaying it onto Defaults() so an
// incomplete file still yields sane values for anything it omits.
func (l *Loader) loadFile() (Config, error) {
	raw, err := os.ReadFile(l.configPath)
	if err != nil {
		return Config{}, err
	}
	var y yamlConfig
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return applyYAML(Defaults(), y), nil
}
