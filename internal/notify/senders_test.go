package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSendEscapesAndTargetsChat(t *testing.T) {
	var gotPath string
	var gotMsg telegramMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMsg))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewTelegramSender("token123", "chat42")
	sender.api = srv.URL

	err := sender.Send(context.Background(), "Ledger <inconsistency>", "tx 0xabc & more")
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "chat42", gotMsg.ChatID)
	assert.Equal(t, "HTML", gotMsg.ParseMode)
	assert.True(t, gotMsg.DisableLinkPreview)
	assert.Equal(t, "<b>Ledger &lt;inconsistency&gt;</b>\ntx 0xabc &amp; more", gotMsg.Text)
}

func TestTelegramSendNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewTelegramSender("t", "c")
	sender.api = srv.URL

	err := sender.Send(context.Background(), "title", "body")
	require.ErrorContains(t, err, "unexpected status 400")
}

func TestDiscordSendPostsEmbed(t *testing.T) {
	var got discordWebhookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)

	err := sender.Send(context.Background(), "Keeper health degraded", "rpc: block number: timeout")
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "Keeper health degraded", got.Embeds[0].Title)
	assert.Equal(t, "rpc: block number: timeout", got.Embeds[0].Description)
	assert.Equal(t, discordAlertColor, got.Embeds[0].Color)
	assert.NotEmpty(t, got.Embeds[0].Timestamp)
}

func TestDiscordSendNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)

	err := sender.Send(context.Background(), "title", "body")
	require.ErrorContains(t, err, "unexpected status 429")
}
