package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	xerrors "RICA-Assistant/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rica.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Server.Address(); got != "127.0.0.1:8000" {
		t.Fatalf("address = %q, want %q", got, "127.0.0.1:8000")
	}
	if cfg.LLM.Provider != "groq" {
		t.Fatalf("provider = %q, want %q", cfg.LLM.Provider, "groq")
	}
	if cfg.Resolver.DefaultInquirer != "Siam" {
		t.Fatalf("default inquirer = %q, want %q", cfg.Resolver.DefaultInquirer, "Siam")
	}
	if !cfg.Resolver.ReviewEnabled() {
		t.Fatal("review stage should default to enabled")
	}
	if cfg.Bridge.Queue.Driver != "memory" {
		t.Fatalf("queue driver = %q, want %q", cfg.Bridge.Queue.Driver, "memory")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", cfg.Audio.SampleRate)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9001
llm:
  groq:
    api_key: inline-key
    timeout_seconds: 15
bridge:
  enabled: true
  token: bot-token
  queue:
    driver: redis
    redis:
      address: 127.0.0.1:6379
resolver:
  review_stage: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Server.Address(); got != "0.0.0.0:9001" {
		t.Fatalf("address = %q, want %q", got, "0.0.0.0:9001")
	}
	if cfg.LLM.Groq.Timeout() != 15*time.Second {
		t.Fatalf("timeout = %v, want 15s", cfg.LLM.Groq.Timeout())
	}
	if cfg.Resolver.ReviewEnabled() {
		t.Fatal("review stage should be disabled")
	}
	if cfg.Bridge.Queue.Driver != "redis" {
		t.Fatalf("queue driver = %q, want %q", cfg.Bridge.Queue.Driver, "redis")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestSecretsFromEnvironment(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "env-key")
	t.Setenv("TELEGRAM_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.Groq.APIKey != "env-key" {
		t.Fatalf("api key = %q, want %q", cfg.LLM.Groq.APIKey, "env-key")
	}
	if cfg.Bridge.Token != "env-token" {
		t.Fatalf("bridge token = %q, want %q", cfg.Bridge.Token, "env-token")
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if xerrors.CodeOf(err) != xerrors.CodeConfiguration {
		t.Fatalf("code = %q, want %q", xerrors.CodeOf(err), xerrors.CodeConfiguration)
	}
}

func TestValidateBridgeNeedsToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	path := writeConfig(t, `
llm:
  groq:
    api_key: key
bridge:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled bridge without token")
	}
}

func TestValidateRejectsUnknownQueueDriver(t *testing.T) {
	path := writeConfig(t, `
llm:
  groq:
    api_key: key
bridge:
  queue:
    driver: kafka
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown queue driver")
	}
}

func TestKnowledgeSourceRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
llm:
  groq:
    api_key: key
resolver:
  knowledge_source: knowledge.json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := filepath.Join(filepath.Dir(path), "knowledge.json")
	if cfg.Resolver.KnowledgeSource != want {
		t.Fatalf("knowledge source = %q, want %q", cfg.Resolver.KnowledgeSource, want)
	}
}
