package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	name string
	err  error
	got  []string
}

func (s *stubSender) Send(_ context.Context, title, _ string) error {
	s.got = append(s.got, title)
	return s.err
}

func (s *stubSender) Name() string { return s.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{s}, []string{"refresh_failed", " "}, discard())

	require.NoError(t, n.Notify(context.Background(), "refresh_succeeded", "ok", ""))
	require.NoError(t, n.Notify(context.Background(), "refresh_failed", "bad", ""))
	assert.Equal(t, []string{"bad"}, s.got)
}

func TestNotifier_AllEventsWhenUnfiltered(t *testing.T) {
	s := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{s}, nil, discard())
	require.NoError(t, n.Notify(context.Background(), "anything", "t", ""))
	assert.Len(t, s.got, 1)
}

func TestNotifier_JoinsFailures(t *testing.T) {
	boom := errors.New("boom")
	a := &stubSender{name: "a", err: boom}
	b := &stubSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, nil, discard())

	err := n.Notify(context.Background(), "refresh_failed", "t", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, b.got, 1)
}

func TestNotifier_NilIsDisabled(t *testing.T) {
	var n *Notifier
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), "e", "t", "m"))
}

func TestTelegramSender_Posts(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.apiBase = srv.URL
	require.NoError(t, s.Send(context.Background(), "Title", "body"))
	assert.Equal(t, "42", payload["chat_id"])
	assert.Equal(t, "*Title*\nbody", payload["text"])
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad webhook"))
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 400: bad webhook")
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 3) // 6 bytes
	assert.Equal(t, "éé", truncate(s, 5))
	assert.Equal(t, "abc", truncate("abc", 10))
}
