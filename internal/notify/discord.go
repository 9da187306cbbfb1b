package notify

import (
	"context"
	"fmt"
	"net/http"
)

const discordMaxChars = 2000

// DiscordSender posts to a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for webhookURL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{webhookURL: webhookURL, client: defaultClient()}
}

// Send posts the message to the webhook with the title in bold. The content
// is cut on a rune boundary to Discord's 2000 limit. Discord answers 204 on success;
// any non-2xx status is returned as an error carrying the response body.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"content": truncate(fmt.Sprintf("**%s**\n%s", title, message), discordMaxChars),
	}
	if err := postJSON(ctx, d.client, d.webhookURL, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string { return "discord" }
