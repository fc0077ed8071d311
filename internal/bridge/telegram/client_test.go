package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error when token is missing")
	}
}

func TestSendMessage(t *testing.T) {
	var captured struct {
		Path string
		Body map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	client, err := NewClient(Config{Token: "bot-token", APIBase: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	if err := client.SendMessage(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Path != "/botbot-token/sendMessage" {
		t.Fatalf("unexpected path: %s", captured.Path)
	}
	if captured.Body["chat_id"] != float64(42) || captured.Body["text"] != "hello" {
		t.Fatalf("unexpected payload: %+v", captured.Body)
	}
}

func TestSendMessageRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	client, err := NewClient(Config{Token: "bot-token", APIBase: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	if err := client.SendMessage(context.Background(), 42, "hello"); err == nil {
		t.Fatalf("expected error when api replies ok=false")
	}
}

func TestSendMessageEmptyText(t *testing.T) {
	client, err := NewClient(Config{Token: "bot-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.SendMessage(context.Background(), 42, "  "); err == nil {
		t.Fatalf("expected error for empty text")
	}
}
