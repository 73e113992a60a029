package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var got telegramMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":123}}`))
	}))
	defer server.Close()

	n, err := NewTelegramNotifier("test-token", "12345", server.URL, nil)
	require.NoError(t, err)

	d, err := n.Send(context.Background(), Message{
		Subject: "Sondheim UK Report For July 15, 2025",
		Text:    "🎭 *Current Sondheim Productions in the UK:*\n- Follies @ National Theatre (2025-06-01 to 2025-08-31)",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, d.StatusCode)
	assert.JSONEq(t, `{"message_id":123}`, string(d.Response))
	assert.Equal(t, "12345", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
	assert.True(t, strings.HasPrefix(got.Text, "*Sondheim UK Report For July 15, 2025*\n\n🎭"))
}

func TestTelegramNotifier_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n, err := NewTelegramNotifier("secret-token", "12345", server.URL, nil)
	require.NoError(t, err)

	_, err = n.Send(context.Background(), Message{Subject: "s"})

	var fe *errs.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadRequest, fe.StatusCode)
	assert.NotContains(t, fe.URL, "secret-token")
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, fe.Err.Error(), "chat not found")
}

const realShapedToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

func TestTelegramNotifier_SendWithNumericToken(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/bot"+realShapedToken+"/sendMessage", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer server.Close()

	n, err := NewTelegramNotifier(realShapedToken, "12345", server.URL, nil)
	require.NoError(t, err)

	d, err := n.Send(context.Background(), Message{Subject: "s", Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.JSONEq(t, `{"message_id":7}`, string(d.Response))
}

func TestTelegramNotifier_TransportFailureHidesToken(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	n, err := NewTelegramNotifier(realShapedToken, "12345", base, nil)
	require.NoError(t, err)

	_, err = n.Send(context.Background(), Message{Subject: "s"})

	var fe *errs.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.NotContains(t, err.Error(), "AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw")
	assert.Contains(t, err.Error(), "bot"+errs.Redacted)
}

func TestNewTelegramNotifier_Validation(t *testing.T) {
	_, err := NewTelegramNotifier("", "1", "", nil)
	var cfgErr *errs.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TELEGRAM_BOT_TOKEN", cfgErr.Setting)

	_, err = NewTelegramNotifier("t", "", "", nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TELEGRAM_CHAT_ID", cfgErr.Setting)
}

func TestFormatChat_Truncates(t *testing.T) {
	text := formatChat(Message{Subject: "s", Text: strings.Repeat("é", 5000)})

	assert.Equal(t, MaxTelegramLength, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, "..."))
}
