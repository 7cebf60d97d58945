package tg

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"coupon-bot/internal/chat"
	"coupon-bot/internal/logging"
	"coupon-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, in chat.Intent) error

func (f handlerFunc) Dispatch(ctx context.Context, in chat.Intent) error { return f(ctx, in) }

type memoryDeduper struct {
	seen map[int]bool
	err  error
}

func (m *memoryDeduper) FirstDelivery(_ context.Context, updateID int) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[updateID] {
		return false, nil
	}
	m.seen[updateID] = true
	return true, nil
}

func textUpdate(id int) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: id, Message: privateMessage("hello")}
}

func TestProcessorSkipsDuplicates(t *testing.T) {
	var got []chat.Intent
	h := handlerFunc(func(_ context.Context, in chat.Intent) error {
		got = append(got, in)
		return nil
	})
	p := NewProcessor(h, &memoryDeduper{seen: map[int]bool{}}, time.Second, metrics.Registry("coupon_bot_test"), logging.Discard())

	p.Process(context.Background(), textUpdate(1))
	p.Process(context.Background(), textUpdate(1))
	p.Process(context.Background(), textUpdate(2))
	assert.Len(t, got, 2)
}

func TestProcessorFailsOpenWhenDedupeIsDown(t *testing.T) {
	calls := 0
	h := handlerFunc(func(context.Context, chat.Intent) error {
		calls++
		return nil
	})
	p := NewProcessor(h, &memoryDeduper{err: errors.New("redis down")}, time.Second, nil, logging.Discard())

	p.Process(context.Background(), textUpdate(1))
	p.Process(context.Background(), textUpdate(1))
	assert.Equal(t, 2, calls)
}

func TestProcessorBoundsHandlingTime(t *testing.T) {
	var deadline time.Time
	h := handlerFunc(func(ctx context.Context, _ chat.Intent) error {
		deadline, _ = ctx.Deadline()
		return errors.New("storage down")
	})
	p := NewProcessor(h, nil, 50*time.Millisecond, nil, logging.Discard())

	before := time.Now()
	p.Process(context.Background(), textUpdate(1))
	require.False(t, deadline.IsZero())
	assert.WithinDuration(t, before.Add(50*time.Millisecond), deadline, time.Second)
}

func TestProcessorRecoversPanics(t *testing.T) {
	h := handlerFunc(func(context.Context, chat.Intent) error { panic("boom") })
	p := NewProcessor(h, nil, time.Second, nil, logging.Discard())

	assert.NotPanics(t, func() { p.Process(context.Background(), textUpdate(1)) })
}

type recordingProcessor struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
}

func (r *recordingProcessor) Process(_ context.Context, u tgbotapi.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func TestWebhookAlwaysAnswersOK(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewWebhookHandler("s3cret", proc, nil, logging.Discard())
	body := `{"update_id":5,"message":{"message_id":1,"date":0,"from":{"id":11,"is_bot":false,"first_name":"A"},"chat":{"id":11,"type":"private"},"text":"hi"}}`

	tests := []struct {
		name      string
		secret    string
		body      string
		processed bool
	}{
		{name: "valid", secret: "s3cret", body: body, processed: true},
		{name: "wrong secret", secret: "nope", body: body},
		{name: "missing secret", body: body},
		{name: "malformed body", secret: "s3cret", body: "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc.updates = nil
			req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", bytes.NewBufferString(tt.body))
			if tt.secret != "" {
				req.Header.Set(SecretHeader, tt.secret)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "OK", rec.Body.String())
			if tt.processed {
				require.Len(t, proc.updates, 1)
				assert.Equal(t, 5, proc.updates[0].UpdateID)
			} else {
				assert.Empty(t, proc.updates)
			}
		})
	}
}

type chanSource struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (s *chanSource) Updates(int) tgbotapi.UpdatesChannel { return s.ch }
func (s *chanSource) StopUpdates()                         { s.stopped = true }

func TestPollerDrainsUntilClosed(t *testing.T) {
	src := &chanSource{ch: make(chan tgbotapi.Update, 2)}
	src.ch <- textUpdate(1)
	src.ch <- textUpdate(2)
	close(src.ch)

	proc := &recordingProcessor{}
	require.NoError(t, NewPoller(src, proc, 30, logging.Discard()).Run(context.Background()))
	assert.Len(t, proc.updates, 2)
	assert.True(t, src.stopped)
}

func TestPollerStopsOnCancel(t *testing.T) {
	src := &chanSource{ch: make(chan tgbotapi.Update)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, NewPoller(src, &recordingProcessor{}, 30, logging.Discard()).Run(ctx))
	assert.True(t, src.stopped)
}
