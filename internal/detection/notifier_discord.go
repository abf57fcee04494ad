// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// DiscordNotifier posts signals to a Discord channel webhook as embeds.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	minimum    Severity
	enabled    bool
	mu         sync.RWMutex
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	WebhookURL  string `json:"webhook_url"`
	Enabled     bool   `json:"enabled"`
	RateLimitMs int    `json:"rate_limit_ms"` // Minimum ms between messages

	// MinSeverity drops signals below this severity. Empty means info.
	MinSeverity Severity `json:"min_severity,omitempty"`
}

// NewDiscordNotifier creates a new Discord notifier.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	interval := time.Duration(config.RateLimitMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	minimum := config.MinSeverity
	if minimum == "" {
		minimum = SeverityInfo
	}

	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled,
		minimum:    minimum,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Enabled returns whether this notifier is enabled.
func (n *DiscordNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *DiscordNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send delivers a signal to Discord.
func (n *DiscordNotifier) Send(ctx context.Context, signal *Signal) error {
	n.mu.RLock()
	if !n.enabled || n.webhookURL == "" {
		n.mu.RUnlock()
		return nil
	}
	webhookURL := n.webhookURL
	minimum := n.minimum
	n.mu.RUnlock()

	if severityRank(signal.Severity) < severityRank(minimum) {
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limit wait: %w", err)
	}

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(signal)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(signal *Signal) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Client", Value: signal.ClientID, Inline: true},
		{Name: "Severity", Value: string(signal.Severity), Inline: true},
		{Name: "Kind", Value: string(signal.Kind), Inline: true},
	}
	if signal.Reason != "" {
		fields = append(fields, discordEmbedField{Name: "Reason", Value: signal.Reason, Inline: true})
	}
	if signal.Range != "" {
		fields = append(fields, discordEmbedField{Name: "Range", Value: signal.Range})
	}
	if len(signal.Matches) > 0 {
		fields = append(fields, discordEmbedField{
			Name:  "Matches",
			Value: truncate(strings.Join(signal.Matches, ", "), 1024),
		})
	}

	title := "Range signal: " + string(signal.Kind)
	return discordEmbed{
		Title:       title,
		Description: signal.Message,
		Color:       severityColor(signal.Severity),
		Timestamp:   signal.CreatedAt.Format(time.RFC3339),
		Fields:      fields,
		Footer: discordEmbedFooter{
			Text: "RangeGuard",
		},
	}
}

func severityColor(severity Severity) int {
	switch severity {
	case SeverityCritical:
		return 0xFF0000 // Red
	case SeverityWarning:
		return 0xFFA500 // Orange
	case SeverityInfo:
		return 0x3498DB // Blue
	default:
		return 0x95A5A6 // Gray
	}
}

func severityRank(severity Severity) int {
	switch severity {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Discord field values are capped at 1024 characters.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}
