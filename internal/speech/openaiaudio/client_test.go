package openaiaudio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"RICA-Assistant/internal/speech"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}

	client, err := NewClient(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if client.sttModel != defaultSTTModel {
		t.Fatalf("sttModel = %q, want %q", client.sttModel, defaultSTTModel)
	}
	if client.voice != defaultVoice {
		t.Fatalf("voice = %q, want %q", client.voice, defaultVoice)
	}
}

func TestTranscribeSuccess(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q, want /audio/transcriptions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" hello world "}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	text, err := client.Transcribe(context.Background(), []byte("fake-audio"), "wav")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q, want %q", text, "hello world")
	}
	if gotAuth != "Bearer key" {
		t.Fatalf("auth header = %q, want %q", gotAuth, "Bearer key")
	}
	if gotModel != defaultSTTModel {
		t.Fatalf("model field = %q, want %q", gotModel, defaultSTTModel)
	}
}

func TestTranscribeEmptyTextIsUnintelligible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"   "}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = client.Transcribe(context.Background(), []byte("fake-audio"), "wav")
	if !errors.Is(err, speech.ErrUnintelligible) {
		t.Fatalf("err = %v, want ErrUnintelligible", err)
	}
}

func TestTranscribeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = client.Transcribe(context.Background(), []byte("fake-audio"), "wav")
	if err == nil {
		t.Fatal("expected error for upstream failure")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want status code in message", err)
	}
}

func TestSynthesizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %q, want /audio/speech", r.URL.Path)
		}
		w.Write([]byte("binary-audio"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	data, err := client.Synthesize(context.Background(), "say this")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(data) != "binary-audio" {
		t.Fatalf("data = %q, want %q", data, "binary-audio")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	client, err := NewClient(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := client.Synthesize(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}
