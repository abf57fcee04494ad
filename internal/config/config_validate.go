// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package config

import (
	"fmt"
	"net/url"

	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/validation"
)

// Validate checks struct tags first and then rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	validators := []func() error{
		c.validateLogging,
		c.validateGuard,
		c.validateStorage,
		c.validateWebhook,
		c.validateDiscord,
		c.validateNATS,
		c.validateAPI,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled, got %q", c.Logging.Level)
	}
	return nil
}

// validateGuard rejects trait lists that can never accept a second record.
func (c *Config) validateGuard() error {
	allowed := make(map[string]bool, len(c.Guard.AllowedTraits))
	for _, name := range c.Guard.AllowedTraits {
		allowed[name] = true
	}
	for _, name := range c.Guard.BannedTraits {
		if allowed[name] {
			return fmt.Errorf("trait %q is both banned and allowed; every follow-up request would be rejected", name)
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Backend != StorageBadger {
		return nil
	}
	if c.Storage.GCInterval == 0 {
		return fmt.Errorf("STORAGE_GC_INTERVAL must be positive when STORAGE_BACKEND=badger")
	}
	return nil
}

func (c *Config) validateWebhook() error {
	w := c.Notifiers.Webhook
	if !w.Enabled {
		return nil
	}
	if w.URL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_ENABLED=true")
	}
	if err := validateURL(w.URL, "WEBHOOK_URL", "http", "https"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDiscord() error {
	d := c.Notifiers.Discord
	if !d.Enabled {
		return nil
	}
	if d.WebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required when DISCORD_ENABLED=true")
	}
	return validateURL(d.WebhookURL, "DISCORD_WEBHOOK_URL", "https")
}

func (c *Config) validateNATS() error {
	n := c.Notifiers.NATS
	if !n.Enabled {
		return nil
	}
	if n.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	return validateURL(n.URL, "NATS_URL", "nats", "tls")
}

func (c *Config) validateAPI() error {
	if c.Server.Environment != "production" {
		return nil
	}
	for _, origin := range c.API.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain '*' when ENVIRONMENT=production")
		}
	}
	if c.API.RateLimitDisabled {
		return fmt.Errorf("DISABLE_RATE_LIMIT is not allowed when ENVIRONMENT=production")
	}
	return nil
}

// validateURL checks that rawURL parses, uses one of schemes and names a host.
func validateURL(rawURL, fieldName string, schemes ...string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	schemeOK := false
	for _, s := range schemes {
		if parsedURL.Scheme == s {
			schemeOK = true
			break
		}
	}
	if !schemeOK {
		return fmt.Errorf("%s scheme must be one of %v, got: %q", fieldName, schemes, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
