// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/detection/traits"
	"github.com/tomtom215/rangeguard/internal/logging"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Guard     GuardConfig     `koanf:"guard"`
	Storage   StorageConfig   `koanf:"storage"`
	Notifiers NotifiersConfig `koanf:"notifiers"`
	API       APIConfig       `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	FilesDir        string        `koanf:"files_dir" validate:"required"` // served under /files
	Environment     string        `koanf:"environment" validate:"oneof=development production"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// GuardConfig holds the classification engine settings.
type GuardConfig struct {
	Enabled           bool     `koanf:"enabled"`
	MaxResourceSize   int64    `koanf:"max_resource_size" validate:"gte=0"`
	MaxDelayMs        int64    `koanf:"max_delay_ms" validate:"gte=0"`
	MaxParts          int      `koanf:"max_parts" validate:"gte=0"`
	BannedTraits      []string `koanf:"banned_traits" validate:"dive,trait"`
	AllowedTraits     []string `koanf:"allowed_traits" validate:"dive,trait"`
	AcceptZeroOffsets bool     `koanf:"accept_zero_offsets"`

	// ClientHeader, when set, identifies clients by this request header
	// instead of the real client IP.
	ClientHeader string `koanf:"client_header"`

	RecentSignals int `koanf:"recent_signals" validate:"min=1,max=100000"`
}

// EngineConfig resolves trait names and returns the engine configuration.
func (g GuardConfig) EngineConfig() (detection.Config, error) {
	banned, err := traits.Resolve(g.BannedTraits)
	if err != nil {
		return detection.Config{}, fmt.Errorf("guard.banned_traits: %w", err)
	}
	allowed, err := traits.Resolve(g.AllowedTraits)
	if err != nil {
		return detection.Config{}, fmt.Errorf("guard.allowed_traits: %w", err)
	}

	return detection.Config{
		MaxResourceSize:   g.MaxResourceSize,
		MaxDelay:          g.MaxDelayMs,
		MaxParts:          g.MaxParts,
		BannedTraits:      banned,
		AllowedTraits:     allowed,
		AcceptZeroOffsets: g.AcceptZeroOffsets,
	}, nil
}

// Storage backends.
const (
	StorageMemory = "memory"
	StorageBadger = "badger"
)

// StorageConfig selects the history store.
type StorageConfig struct {
	Backend string `koanf:"backend" validate:"oneof=memory badger"`

	// Path is the Badger directory. Empty runs Badger in memory.
	Path       string `koanf:"path"`
	SyncWrites bool   `koanf:"sync_writes"`

	GCInterval     time.Duration `koanf:"gc_interval" validate:"gte=0"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio" validate:"gt=0,lt=1"`
}

// NotifiersConfig groups the signal notifiers.
type NotifiersConfig struct {
	Log     LogNotifierConfig     `koanf:"log"`
	Webhook WebhookNotifierConfig `koanf:"webhook"`
	Discord DiscordNotifierConfig `koanf:"discord"`
	NATS    NATSNotifierConfig    `koanf:"nats"`
	Stream  StreamNotifierConfig  `koanf:"stream"`
}

// StreamNotifierConfig enables the WebSocket signal stream at
// /api/v1/signals/stream.
type StreamNotifierConfig struct {
	Enabled bool `koanf:"enabled"`
}

// LogNotifierConfig enables the zerolog notifier.
type LogNotifierConfig struct {
	Enabled bool `koanf:"enabled"`
}

// WebhookNotifierConfig configures signal delivery to an HTTP endpoint.
type WebhookNotifierConfig struct {
	Enabled     bool              `koanf:"enabled"`
	URL         string            `koanf:"url"`
	Headers     map[string]string `koanf:"headers"`
	RateLimitMs int               `koanf:"rate_limit_ms" validate:"gte=0"`
	Timeout     time.Duration     `koanf:"timeout" validate:"gte=0"`
	Kinds       []string          `koanf:"kinds" validate:"dive,signal_kind"`
}

// DetectionConfig converts to the notifier configuration.
func (w WebhookNotifierConfig) DetectionConfig() detection.WebhookConfig {
	kinds := make([]detection.Kind, 0, len(w.Kinds))
	for _, k := range w.Kinds {
		kinds = append(kinds, detection.Kind(k))
	}
	return detection.WebhookConfig{
		WebhookURL:  w.URL,
		Headers:     w.Headers,
		Enabled:     w.Enabled,
		RateLimitMs: w.RateLimitMs,
		Timeout:     w.Timeout,
		Kinds:       kinds,
	}
}

// DiscordNotifierConfig configures signal embeds posted to a Discord webhook.
type DiscordNotifierConfig struct {
	Enabled     bool   `koanf:"enabled"`
	WebhookURL  string `koanf:"webhook_url"`
	RateLimitMs int    `koanf:"rate_limit_ms" validate:"gte=0"`
	MinSeverity string `koanf:"min_severity" validate:"omitempty,oneof=info warning critical"`
}

// DetectionConfig converts to the notifier configuration.
func (d DiscordNotifierConfig) DetectionConfig() detection.DiscordConfig {
	return detection.DiscordConfig{
		WebhookURL:  d.WebhookURL,
		Enabled:     d.Enabled,
		RateLimitMs: d.RateLimitMs,
		MinSeverity: detection.Severity(d.MinSeverity),
	}
}

// NATSNotifierConfig configures signal publishing to NATS. The notifier is
// only available in binaries built with the nats tag.
type NATSNotifierConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	SubjectPrefix string        `koanf:"subject_prefix"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`
}

// DetectionConfig converts to the notifier configuration.
func (n NATSNotifierConfig) DetectionConfig() detection.NATSConfig {
	return detection.NATSConfig{
		URL:           n.URL,
		SubjectPrefix: n.SubjectPrefix,
		MaxReconnects: n.MaxReconnects,
		ReconnectWait: n.ReconnectWait,
	}
}

// APIConfig configures the inspection API.
type APIConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig converts to the logging package configuration.
func (l LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}

// Load reads configuration from defaults, an optional file and the
// environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
