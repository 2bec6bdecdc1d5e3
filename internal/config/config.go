// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads waitlistd's runtime configuration from environment
// variables plus an optional YAML file, following the teacher's
// ENV > File > Defaults precedence.
package config

import "time"

// Config is the full set of runtime knobs for waitlistd.
type Config struct {
	// Engine
	HoldTTL                  time.Duration
	ConfirmTokenTTL          time.Duration
	TickerInterval           time.Duration
	TickerPageSize           int
	CascadeFanoutK           int
	MaxActiveEntriesPerPhone int

	// Notification dispatcher
	NotifyMaxAttempts int

	// Calendar adapter
	CalendarReconcileInterval time.Duration
	CalendarReconcilePageSize int

	// Outbox worker
	OutboxPollInterval time.Duration
	OutboxPageSize     int

	// Infrastructure
	ListenAddr      string
	MetricsAddr     string
	StoreDSN        string
	OutboxDir       string
	RedisAddr       string
	TokenSigningKey string // never sourced from YAML, ENV/secret only

	// Rate limiting
	RateLimitEnabled        bool
	RateLimitPerPhonePerMin int

	// Tracing
	TracingEnabled      bool
	TracingServiceName  string
	ServiceVersion      string
	Environment         string
	TracingExporterType string
	TracingEndpoint     string
	TracingSamplingRate float64
}

// Defaults returns the baseline configuration applied before ENV/YAML
// overrides, matching SPEC_FULL.md §2.3's named defaults.
func Defaults() Config {
	return Config{
		HoldTTL:                   10 * time.Minute,
		ConfirmTokenTTL:           30 * time.Minute,
		TickerInterval:            30 * time.Second,
		TickerPageSize:            50,
		CascadeFanoutK:            5,
		MaxActiveEntriesPerPhone:  3,
		NotifyMaxAttempts:         3,
		CalendarReconcileInterval: 5 * time.Minute,
		CalendarReconcilePageSize: 25,
		OutboxPollInterval:        2 * time.Second,
		OutboxPageSize:            25,
		ListenAddr:                ":8080",
		MetricsAddr:               ":9090",
		StoreDSN:                  "file:waitlistd.db?_pragma=busy_timeout(5000)",
		OutboxDir:                 "./data/outbox",
		RedisAddr:                 "",
		RateLimitEnabled:          true,
		RateLimitPerPhonePerMin:   10,
		TracingEnabled:            false,
		TracingServiceName:        "waitlistd",
		ServiceVersion:            "0.1.0",
		Environment:               "development",
		TracingExporterType:       "grpc",
		TracingEndpoint:           "localhost:4317",
		TracingSamplingRate:       0.1,
	}
}
