package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/sling"
	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/logger"
)

const (
	TelegramBaseURL = "https://api.telegram.org/"
	TelegramTimeout = 10 * time.Second

	// MaxTelegramLength is the Bot API limit on message text, in characters
	MaxTelegramLength = 4096

	telegramSource = "telegram"
)

// TelegramNotifier posts the plain-text alert to a chat through the Bot API
type TelegramNotifier struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegramNotifier creates a Telegram notifier. baseURL and httpClient
// may be empty for the public API and a 10s-timeout client.
func NewTelegramNotifier(token, chatID, baseURL string, httpClient *http.Client) (*TelegramNotifier, error) {
	if token == "" {
		return nil, &errs.ConfigError{Setting: "TELEGRAM_BOT_TOKEN"}
	}
	if chatID == "" {
		return nil, &errs.ConfigError{Setting: "TELEGRAM_CHAT_ID"}
	}
	if baseURL == "" {
		baseURL = TelegramBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: TelegramTimeout}
	}
	return &TelegramNotifier{token: token, chatID: chatID, baseURL: baseURL, httpClient: httpClient}, nil
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResult struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Send implements Notifier
func (n *TelegramNotifier) Send(ctx context.Context, msg Message) (*Delivery, error) {
	s := sling.New().Client(n.httpClient).Base(n.baseURL).
		Post("./bot" + n.token + "/sendMessage").
		BodyJSON(telegramMessage{
			ChatID:                n.chatID,
			Text:                  formatChat(msg),
			ParseMode:             "Markdown",
			DisableWebPagePreview: true,
		})

	req, err := s.Request()
	if err != nil {
		return nil, &errs.FetchError{Source: telegramSource, URL: n.baseURL, Err: eris.New(errs.RedactSecret(err.Error(), n.token))}
	}
	// the token is part of the path
	safeURL := errs.RedactSecret(req.URL.String(), n.token)

	var result, failure telegramResult
	resp, err := s.Do(req.WithContext(ctx), &result, &failure)
	if err != nil {
		return nil, &errs.FetchError{Source: telegramSource, URL: safeURL, Err: errs.RedactURLError(err, n.token)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if failure.Description != "" {
			cause = eris.New(failure.Description)
		}
		return nil, &errs.FetchError{Source: telegramSource, URL: safeURL, StatusCode: resp.StatusCode, Err: cause}
	}
	if !result.OK {
		return nil, eris.Errorf("telegram API error: %s", result.Description)
	}

	logger.Info("Chat message sent", logger.Fields{"subject": msg.Subject, "chat_id": n.chatID})
	return &Delivery{StatusCode: resp.StatusCode, Response: result.Result}, nil
}

// formatChat puts the subject above the text body, cut to the API limit
func formatChat(msg Message) string {
	text := "*" + msg.Subject + "*"
	if msg.Text != "" {
		text += "\n\n" + msg.Text
	}

	runes := []rune(text)
	if len(runes) > MaxTelegramLength {
		text = string(runes[:MaxTelegramLength-3]) + "..."
	}
	return text
}
