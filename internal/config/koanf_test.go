// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/rangeguard/internal/detection"
)

// isolateEnv points CONFIG_PATH at a missing file and runs the test from an
// empty directory so no config file on disk is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server address = %s", cfg.Server.Addr())
	}
	if !cfg.Guard.Enabled {
		t.Error("guard should be enabled by default")
	}
	if cfg.Guard.MaxResourceSize != 0 || cfg.Guard.MaxDelayMs != 0 || cfg.Guard.MaxParts != 0 {
		t.Error("thresholds should be unconfigured by default")
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if !cfg.Notifiers.Log.Enabled || cfg.Notifiers.Webhook.Enabled || cfg.Notifiers.NATS.Enabled {
		t.Error("only the log notifier should be enabled by default")
	}
	if !cfg.Notifiers.Stream.Enabled {
		t.Error("signal stream should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"RANGEGUARD_MAX_RESOURCE_SIZE", "guard.max_resource_size"},
		{"RANGEGUARD_BANNED_TRAITS", "guard.banned_traits"},
		{"STORAGE_BACKEND", "storage.backend"},
		{"WEBHOOK_HEADERS", "notifiers.webhook.headers"},
		{"NATS_SUBJECT_PREFIX", "notifiers.nats.subject_prefix"},
		{"SIGNAL_STREAM_ENABLED", "notifiers.stream.enabled"},
		{"HTTP_PORT", "server.port"},
		{"log_level", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.input); got != tt.expected {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	isolateEnv(t)
	t.Setenv("RANGEGUARD_MAX_RESOURCE_SIZE", "1048576")
	t.Setenv("RANGEGUARD_MAX_DELAY_MS", "2500")
	t.Setenv("RANGEGUARD_MAX_PARTS", "4")
	t.Setenv("RANGEGUARD_BANNED_TRAITS", "same_start, backward")
	t.Setenv("RANGEGUARD_ACCEPT_ZERO_OFFSETS", "true")
	t.Setenv("WEBHOOK_ENABLED", "true")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/rangeguard")
	t.Setenv("WEBHOOK_HEADERS", "Authorization=Bearer a=b, X-Env=prod")
	t.Setenv("WEBHOOK_KINDS", "downloaded,similar_trait")
	t.Setenv("STORAGE_GC_INTERVAL", "90s")
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Guard.MaxResourceSize != 1048576 || cfg.Guard.MaxDelayMs != 2500 || cfg.Guard.MaxParts != 4 {
		t.Errorf("guard = %+v", cfg.Guard)
	}
	if strings.Join(cfg.Guard.BannedTraits, "|") != "same_start|backward" {
		t.Errorf("BannedTraits = %v", cfg.Guard.BannedTraits)
	}
	if !cfg.Guard.AcceptZeroOffsets {
		t.Error("AcceptZeroOffsets not applied")
	}
	if cfg.Notifiers.Webhook.Headers["Authorization"] != "Bearer a=b" || cfg.Notifiers.Webhook.Headers["X-Env"] != "prod" {
		t.Errorf("Headers = %v", cfg.Notifiers.Webhook.Headers)
	}
	if len(cfg.Notifiers.Webhook.Kinds) != 2 {
		t.Errorf("Kinds = %v", cfg.Notifiers.Webhook.Kinds)
	}
	if cfg.Storage.GCInterval != 90*time.Second {
		t.Errorf("GCInterval = %v", cfg.Storage.GCInterval)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want default", cfg.Server.ShutdownTimeout)
	}

	engineCfg, err := cfg.Guard.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if len(engineCfg.BannedTraits) != 2 || engineCfg.MaxDelay != 2500 || !engineCfg.AcceptZeroOffsets {
		t.Errorf("engine config = %+v", engineCfg)
	}

	hook := cfg.Notifiers.Webhook.DetectionConfig()
	if hook.Kinds[0] != detection.KindDownloaded || !hook.Enabled {
		t.Errorf("webhook config = %+v", hook)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
server:
  port: 8888
  files_dir: "/srv/media"
guard:
  max_resource_size: 734003200
  allowed_traits: [contiguous]
storage:
  backend: badger
  path: "/var/lib/rangeguard"
notifiers:
  webhook:
    enabled: true
    url: "http://alerts.local/hook"
    headers:
      X-Token: "abc"
logging:
  level: warn
`)
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8888 || cfg.Server.FilesDir != "/srv/media" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Guard.MaxResourceSize != 734003200 || len(cfg.Guard.AllowedTraits) != 1 {
		t.Errorf("guard = %+v", cfg.Guard)
	}
	if cfg.Storage.Backend != StorageBadger || cfg.Storage.Path != "/var/lib/rangeguard" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Notifiers.Webhook.Headers["X-Token"] != "abc" {
		t.Errorf("headers = %v", cfg.Notifiers.Webhook.Headers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env should override file: level = %q", cfg.Logging.Level)
	}
	if cfg.Storage.GCDiscardRatio != 0.5 {
		t.Errorf("default GCDiscardRatio lost: %v", cfg.Storage.GCDiscardRatio)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown trait", map[string]string{"RANGEGUARD_BANNED_TRAITS": "teleport"}, "not a registered trait"},
		{"negative size", map[string]string{"RANGEGUARD_MAX_RESOURCE_SIZE": "-1"}, "guard.max_resource_size"},
		{"bad backend", map[string]string{"STORAGE_BACKEND": "redis"}, "storage.backend must be one of"},
		{"bad kind", map[string]string{"WEBHOOK_KINDS": "teleported"}, "is not a signal kind"},
		{"webhook without url", map[string]string{"WEBHOOK_ENABLED": "true"}, "WEBHOOK_URL is required"},
		{"webhook bad scheme", map[string]string{"WEBHOOK_ENABLED": "true", "WEBHOOK_URL": "ftp://x"}, "scheme"},
		{"discord without url", map[string]string{"DISCORD_ENABLED": "true"}, "DISCORD_WEBHOOK_URL is required"},
		{"discord plain http", map[string]string{"DISCORD_ENABLED": "true", "DISCORD_WEBHOOK_URL": "http://discord.test/hook"}, "DISCORD_WEBHOOK_URL scheme"},
		{"nats bad scheme", map[string]string{"NATS_ENABLED": "true", "NATS_URL": "http://x:4222"}, "NATS_URL"},
		{"trait banned and allowed", map[string]string{
			"RANGEGUARD_BANNED_TRAITS":  "overlap",
			"RANGEGUARD_ALLOWED_TRAITS": "overlap",
		}, "both banned and allowed"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"production wildcard cors", map[string]string{"ENVIRONMENT": "production", "CORS_ORIGINS": "*"}, "CORS_ORIGINS"},
		{"bad port", map[string]string{"HTTP_PORT": "70000"}, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	isolateEnv(t)

	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}

	if err := os.WriteFile("config.yml", []byte("server: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFile(); got != "config.yml" {
		t.Errorf("findConfigFile() = %q, want config.yml", got)
	}

	explicit := writeConfig(t, "server: {}\n")
	t.Setenv(ConfigPathEnvVar, explicit)
	if got := findConfigFile(); got != explicit {
		t.Errorf("findConfigFile() = %q, want %q", got, explicit)
	}
}

func TestParseKeyValueList(t *testing.T) {
	t.Parallel()

	got := parseKeyValueList(" A=1 ,broken, =x,B=c=d")
	if len(got) != 2 || got["A"] != "1" || got["B"] != "c=d" {
		t.Errorf("parseKeyValueList = %v", got)
	}
}
