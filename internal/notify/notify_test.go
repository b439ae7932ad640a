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

func TestSlackSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL}, zerolog.Nop())
	err := n.Send(context.Background(), "Price feed is offline", []string{"Symbol: Crypto.BTC/USD", "Status: halted"})
	if err != nil {
		t.Fatalf("send should succeed: %v", err)
	}

	want := "*Price feed is offline*\nSymbol: Crypto.BTC/USD\nStatus: halted"
	if got["text"] != want {
		t.Fatalf("payload text = %q, want %q", got["text"], want)
	}
}

func TestSlackSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{WebhookURL: srv.URL}, zerolog.Nop())
	err := n.Send(context.Background(), "t", nil)
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestTelegramSend(t *testing.T) {
	var path string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{
		BotToken: "token123",
		ChatID:   "-42",
		APIBase:  srv.URL,
	}, zerolog.Nop())
	if err := n.Send(context.Background(), "Negative TWAP", []string{"TWAP: -1"}); err != nil {
		t.Fatalf("send should succeed: %v", err)
	}

	if path != "/bottoken123/sendMessage" {
		t.Fatalf("unexpected api path %q", path)
	}
	if got["chat_id"] != "-42" {
		t.Fatalf("chat_id = %q", got["chat_id"])
	}
	if got["text"] != "Negative TWAP\nTWAP: -1" {
		t.Fatalf("text = %q", got["text"])
	}
}

func TestTelegramSendNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{BotToken: "t", ChatID: "1", APIBase: srv.URL}, zerolog.Nop())
	if err := n.Send(context.Background(), "t", nil); err == nil {
		t.Fatal("ok=false should be an error")
	}
}

func TestFromConfig(t *testing.T) {
	notifiers, err := FromConfig(Config{
		Channels: []string{"log", "slack", "telegram"},
		Slack:    SlackConfig{WebhookURL: "https://hooks.example.com/x"},
		Telegram: TelegramConfig{BotToken: "t", ChatID: "1"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("config should build: %v", err)
	}
	if len(notifiers) != 3 {
		t.Fatalf("expected 3 notifiers, got %d", len(notifiers))
	}
}

func TestFromConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown channel", Config{Channels: []string{"pager"}}},
		{"slack without webhook", Config{Channels: []string{"slack"}}},
		{"telegram without chat id", Config{Channels: []string{"telegram"}, Telegram: TelegramConfig{BotToken: "t"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromConfig(tc.cfg, zerolog.Nop()); err == nil {
				t.Fatal("expected a configuration error")
			}
		})
	}
}

func TestFromConfigEmptyChannels(t *testing.T) {
	notifiers, err := FromConfig(Config{Channels: []string{""}}, zerolog.Nop())
	if err != nil {
		t.Fatalf("blank channel entries are tolerated: %v", err)
	}
	if len(notifiers) != 0 {
		t.Fatalf("expected no notifiers, got %d", len(notifiers))
	}
}
