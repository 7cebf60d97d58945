package tg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"coupon-bot/internal/chat"
	"coupon-bot/internal/logging"
	"coupon-bot/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123:secret"

type apiCall struct {
	Method string
	Form   url.Values
}

// fakeBotAPI answers Bot API calls and records them.
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	blocked bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	_ = r.ParseForm()

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Form: r.PostForm})
	blocked := f.blocked
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case method == "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Shop","username":"shop_bot"}}`))
	case blocked:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	case method == "sendMessage" || method == "sendPhoto":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (f *fakeBotAPI) last(t *testing.T, method string) apiCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method {
			return f.calls[i]
		}
	}
	t.Fatalf("no %s call recorded", method)
	return apiCall{}
}

func newTestClient(t *testing.T) (*Client, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		Token:       testToken,
		APIEndpoint: srv.URL + "/bot%s/%s",
		HTTPClient:  srv.Client(),
	}, metrics.Registry("coupon_bot_test"), logging.Discard())
	require.NoError(t, err)
	return client, fake
}

func TestNewReadsBotIdentity(t *testing.T) {
	client, _ := newTestClient(t)
	assert.Equal(t, "shop_bot", client.Username())
}

func TestSendTextWithInlineKeyboard(t *testing.T) {
	client, fake := newTestClient(t)

	kb := &chat.Keyboard{Inline: [][]chat.Button{{{Label: "✅ Accept", Action: chat.ApproveDeposit{DepositID: 5}}}}}
	require.NoError(t, client.SendText(context.Background(), 42, "hello", kb))

	call := fake.last(t, "sendMessage")
	assert.Equal(t, "42", call.Form.Get("chat_id"))
	assert.Equal(t, "hello", call.Form.Get("text"))

	var markup struct {
		InlineKeyboard [][]struct {
			Text         string `json:"text"`
			CallbackData string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(call.Form.Get("reply_markup")), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "adm:ok:5", markup.InlineKeyboard[0][0].CallbackData)
}

func TestSendTextWithMenu(t *testing.T) {
	client, fake := newTestClient(t)

	require.NoError(t, client.SendText(context.Background(), 42, "menu", &chat.Keyboard{Menu: [][]string{{"💎 Balance"}}}))

	var markup struct {
		Keyboard [][]struct {
			Text string `json:"text"`
		} `json:"keyboard"`
		Resize bool `json:"resize_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(fake.last(t, "sendMessage").Form.Get("reply_markup")), &markup))
	assert.True(t, markup.Resize)
	assert.Equal(t, "💎 Balance", markup.Keyboard[0][0].Text)
}

func TestSendPhotoByFileID(t *testing.T) {
	client, fake := newTestClient(t)

	require.NoError(t, client.SendPhoto(context.Background(), 42, "AgACfile", "caption", nil))
	call := fake.last(t, "sendPhoto")
	assert.Equal(t, "AgACfile", call.Form.Get("photo"))
	assert.Equal(t, "caption", call.Form.Get("caption"))
}

func TestAckAndWebhookRegistration(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.AckButton(ctx, "press-1", "Approved ✅"))
	ack := fake.last(t, "answerCallbackQuery")
	assert.Equal(t, "press-1", ack.Form.Get("callback_query_id"))
	assert.Equal(t, "Approved ✅", ack.Form.Get("text"))

	require.NoError(t, client.SetWebhook(ctx, "https://shop.example/webhook/telegram", "s3cret"))
	hook := fake.last(t, "setWebhook")
	assert.Equal(t, "https://shop.example/webhook/telegram", hook.Form.Get("url"))
	assert.Equal(t, "s3cret", hook.Form.Get("secret_token"))
}

func TestSendFailureIsReported(t *testing.T) {
	client, fake := newTestClient(t)
	fake.mu.Lock()
	fake.blocked = true
	fake.mu.Unlock()

	err := client.SendText(context.Background(), 42, "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}
