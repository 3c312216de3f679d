package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// discordField is one name/value pair inside an embed.
type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// discordEmbed is one embed object in a Discord webhook payload.
type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
	Timestamp string `json:"timestamp"`
}

// embedGreen is the accent color used for profitable-opportunity embeds.
const embedGreen = 0x2ecc71

// DiscordSender delivers alerts via a Discord webhook as rich embeds.
type DiscordSender struct {
	webhookURL string
	username   string
	client     *http.Client
	now        func() time.Time
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. It uses
// a default HTTP client with a 10-second timeout.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		username:   "arbscan",
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Send posts the alert as a single embed. The message fields map one-to-one
// onto embed fields. Discord returns 204 No Content on success.
func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	fields := make([]discordField, len(msg.Fields))
	for i, f := range msg.Fields {
		fields[i] = discordField{Name: f.Name, Value: f.Value, Inline: f.Inline}
	}

	embed := discordEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       embedGreen,
		Fields:      fields,
		Timestamp:   d.now().UTC().Format(time.RFC3339),
	}
	embed.Footer.Text = "arbscan"

	payload := struct {
		Username string         `json:"username"`
		Embeds   []discordEmbed `json:"embeds"`
	}{
		Username: d.username,
		Embeds:   []discordEmbed{embed},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
