package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	telegramAPI      = "https://api.telegram.org"
	telegramMaxChars = 4096
)

// TelegramSender posts to a chat through the Bot API.
type TelegramSender struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for a bot token and chat id.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{apiBase: telegramAPI, token: token, chatID: chatID, client: defaultClient()}
}

// Send calls the Bot API sendMessage method with the title in bold using
// Markdown parse mode. The text is cut on a rune boundary to Telegram's 4096 limit.
// A non-2xx answer is returned as an error carrying the response body.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.apiBase, "/"), t.token)
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       truncate(fmt.Sprintf("*%s*\n%s", title, message), telegramMaxChars),
		"parse_mode": "Markdown",
	}
	if err := postJSON(ctx, t.client, url, payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string { return "telegram" }
