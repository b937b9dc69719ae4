package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestTelegram(t *testing.T, handler http.HandlerFunc) *Telegram {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tg, err := NewTelegram(TelegramOptions{
		Token:      "bot-token",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewTelegram error: %v", err)
	}
	return tg
}

func TestSendReturnsMessageRef(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/botbot-token/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ChatID != "chat-42" || req.Text != "hello" {
			t.Errorf("unexpected payload %+v", req)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":777}}`))
	})

	ref, err := tg.Send(context.Background(), "chat-42", "hello")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if ref != "777" {
		t.Fatalf("expected message ref 777, got %q", ref)
	}
}

func TestEditProgress(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/editMessageText") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req editMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.MessageID != "777" {
			t.Errorf("unexpected message id %q", req.MessageID)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	if err := tg.EditProgress(context.Background(), "chat-42", "777", "Generating: 40%"); err != nil {
		t.Fatalf("EditProgress error: %v", err)
	}
}

func TestSendRejected(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	})

	if _, err := tg.Send(context.Background(), "nope", "hello"); err == nil {
		t.Fatal("expected error for rejected send")
	}
}

func TestNewTelegramRequiresToken(t *testing.T) {
	if _, err := NewTelegram(TelegramOptions{}); err == nil {
		t.Fatal("expected error without token")
	}
}
