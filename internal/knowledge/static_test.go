package knowledge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestQueryMatchesKeywords(t *testing.T) {
	provider := NewStaticProvider([]Snippet{
		{Title: "hours", Content: "open 9 to 5", Keywords: []string{"hours", "open"}},
		{Title: "pricing", Content: "free tier available", Keywords: []string{"price", "cost"}},
	}, 3)

	got := provider.Query("what are your opening HOURS?")
	if len(got) != 1 {
		t.Fatalf("got %d snippets, want 1", len(got))
	}
	if got[0].Title != "hours" {
		t.Fatalf("title = %q, want %q", got[0].Title, "hours")
	}
}

func TestQueryRespectsMaxResults(t *testing.T) {
	provider := NewStaticProvider([]Snippet{
		{Title: "a"},
		{Title: "b"},
		{Title: "c"},
	}, 2)

	got := provider.Query("anything")
	if len(got) != 2 {
		t.Fatalf("got %d snippets, want 2", len(got))
	}
}

func TestLoadStaticProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge.json")
	content := `[{"title":"greeting","content":"say hi","keywords":["hello"]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write knowledge file: %v", err)
	}

	provider, err := LoadStaticProvider(path, 0)
	if err != nil {
		t.Fatalf("LoadStaticProvider returned error: %v", err)
	}
	got := provider.Query("hello there")
	if len(got) != 1 || got[0].Title != "greeting" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLoadStaticProviderMissingFile(t *testing.T) {
	if _, err := LoadStaticProvider(filepath.Join(t.TempDir(), "missing.json"), 1); err == nil {
		t.Fatal("expected error for missing file")
	}
}
