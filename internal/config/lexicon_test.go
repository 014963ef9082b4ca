package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLexicon_CategoryPriority(t *testing.T) {
	lex := DefaultLexicon()
	want := []string{"tasks", "notes", "calendar", "gallery"}
	if len(lex.Categories) != len(want) {
		t.Fatalf("expected %d category groups, got %d", len(want), len(lex.Categories))
	}
	for i, name := range want {
		if lex.Categories[i].Name != name {
			t.Errorf("group %d = %s, want %s", i, lex.Categories[i].Name, name)
		}
	}
}

func TestLoadLexicon_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	raw := "affirmative:\n  - ja\n  - jawohl\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if len(lex.Affirmative) != 2 || lex.Affirmative[0] != "ja" {
		t.Errorf("affirmative not overridden: %v", lex.Affirmative)
	}
	// Untouched sections keep the defaults.
	if len(lex.Negative) == 0 || lex.Negative[0] != "no" {
		t.Errorf("negative lost its default: %v", lex.Negative)
	}
	if len(lex.Categories) != 4 {
		t.Errorf("categories lost their default: %v", lex.Categories)
	}
}

func TestLoadLexicon_MissingFile(t *testing.T) {
	if _, err := LoadLexicon(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing lexicon file")
	}
}
