// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rangeguard/config.yaml",
	"/etc/rangeguard/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // downloads may stream for a long time
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			FilesDir:        "/data/files",
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Guard: GuardConfig{
			Enabled:         true,
			MaxResourceSize: 0,
			MaxDelayMs:      0,
			MaxParts:        0,
			BannedTraits:    []string{},
			AllowedTraits:   []string{},
			RecentSignals:   500,
		},
		Storage: StorageConfig{
			Backend:        StorageMemory,
			Path:           "/data/history",
			SyncWrites:     false,
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Notifiers: NotifiersConfig{
			Log: LogNotifierConfig{Enabled: true},
			Webhook: WebhookNotifierConfig{
				Enabled:     false,
				Headers:     map[string]string{},
				RateLimitMs: 500,
				Timeout:     10 * time.Second,
				Kinds:       []string{},
			},
			Discord: DiscordNotifierConfig{
				Enabled:     false,
				RateLimitMs: 1000,
				MinSeverity: "warning",
			},
			NATS: NATSNotifierConfig{
				Enabled:       false,
				URL:           "nats://127.0.0.1:4222",
				SubjectPrefix: "rangeguard.signals",
				MaxReconnects: 10,
				ReconnectWait: 2 * time.Second,
			},
			Stream: StreamNotifierConfig{Enabled: true},
		},
		API: APIConfig{
			CORSOrigins:     []string{},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RANGEGUARD_MAX_PARTS -> guard.max_parts, WEBHOOK_URL -> notifiers.webhook.url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processMapFields(k); err != nil {
		return nil, fmt.Errorf("failed to process map fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"guard.banned_traits",
	"guard.allowed_traits",
	"notifiers.webhook.kinds",
	"api.cors_origins",
}

// mapConfigPaths defines which config paths are parsed as key=value lists
var mapConfigPaths = []string{
	"notifiers.webhook.headers",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		if err := k.Set(path, splitList(strVal)); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// processMapFields converts "k1=v1,k2=v2" strings to maps.
func processMapFields(k *koanf.Koanf) error {
	for _, path := range mapConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		m := parseKeyValueList(strVal)
		// Delete first so the parsed map replaces the string leaf.
		k.Delete(path)
		if len(m) == 0 {
			continue
		}
		if err := k.Set(path, m); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseKeyValueList parses "Authorization=Bearer xyz,X-Custom=value".
// Values may contain '='.
func parseKeyValueList(value string) map[string]string {
	result := make(map[string]string)
	for _, item := range strings.Split(value, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			result[key] = strings.TrimSpace(val)
		}
	}
	return result
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"files_dir":             "server.files_dir",
	"environment":           "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Guard
	"rangeguard_enabled":             "guard.enabled",
	"rangeguard_max_resource_size":   "guard.max_resource_size",
	"rangeguard_max_delay_ms":        "guard.max_delay_ms",
	"rangeguard_max_parts":           "guard.max_parts",
	"rangeguard_banned_traits":       "guard.banned_traits",
	"rangeguard_allowed_traits":      "guard.allowed_traits",
	"rangeguard_accept_zero_offsets": "guard.accept_zero_offsets",
	"rangeguard_client_header":       "guard.client_header",
	"rangeguard_recent_signals":      "guard.recent_signals",

	// Storage
	"storage_backend":          "storage.backend",
	"storage_path":             "storage.path",
	"storage_sync_writes":      "storage.sync_writes",
	"storage_gc_interval":      "storage.gc_interval",
	"storage_gc_discard_ratio": "storage.gc_discard_ratio",

	// Notifiers
	"log_notifier_enabled":  "notifiers.log.enabled",
	"webhook_enabled":       "notifiers.webhook.enabled",
	"webhook_url":           "notifiers.webhook.url",
	"webhook_headers":       "notifiers.webhook.headers",
	"webhook_rate_limit_ms": "notifiers.webhook.rate_limit_ms",
	"webhook_timeout":       "notifiers.webhook.timeout",
	"webhook_kinds":         "notifiers.webhook.kinds",
	"discord_enabled":       "notifiers.discord.enabled",
	"discord_webhook_url":   "notifiers.discord.webhook_url",
	"discord_rate_limit_ms": "notifiers.discord.rate_limit_ms",
	"discord_min_severity":  "notifiers.discord.min_severity",
	"nats_enabled":          "notifiers.nats.enabled",
	"nats_url":              "notifiers.nats.url",
	"nats_subject_prefix":   "notifiers.nats.subject_prefix",
	"nats_max_reconnects":   "notifiers.nats.max_reconnects",
	"nats_reconnect_wait":   "notifiers.nats.reconnect_wait",
	"signal_stream_enabled": "notifiers.stream.enabled",

	// API
	"cors_origins":        "api.cors_origins",
	"rate_limit_requests": "api.rate_limit_reqs",
	"rate_limit_window":   "api.rate_limit_window",
	"disable_rate_limit":  "api.rate_limit_disabled",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Returning "" skips the variable so unrelated environment does not leak
// into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes. The
// caller is responsible for reloading and swapping configuration safely.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
