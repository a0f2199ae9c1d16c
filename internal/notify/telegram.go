package notify

import (
	"context"
	"fmt"
	"net/http"
)

// TelegramSender posts alerts to a chat through the Bot API sendMessage call.
// Skin names routinely contain "|" and "*", so messages go out with plain
// Markdown rather than MarkdownV2, which would require escaping both.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a sender for the given bot token and chat id.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: sendTimeout},
	}
}

func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, t.client, t.Name(),
		fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token),
		map[string]string{
			"chat_id":    t.chatID,
			"text":       fmt.Sprintf("*%s*\n%s", title, message),
			"parse_mode": "Markdown",
		})
}

func (t *TelegramSender) Name() string { return "telegram" }
