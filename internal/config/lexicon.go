package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the confirmation vocabularies and the category keyword
// groups. Category groups are matched in declaration order; the first
// group containing a matching keyword wins.
type Lexicon struct {
	Affirmative []string        `yaml:"affirmative"`
	Negative    []string        `yaml:"negative"`
	Categories  []CategoryGroup `yaml:"categories"`
}

// CategoryGroup names a filter category and the keywords that classify a
// bot/system message into it.
type CategoryGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultLexicon returns the built-in vocabularies. The affirmative and
// negative sets are matched as case-insensitive substrings of the trimmed
// utterance. Category priority: tasks, notes, calendar, gallery.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Affirmative: []string{"yes", "yeah", "yep", "sure", "confirm"},
		Negative:    []string{"no", "nope", "cancel", "stop"},
		Categories: []CategoryGroup{
			{Name: "tasks", Keywords: []string{"task", "todo", "to-do", "due"}},
			{Name: "notes", Keywords: []string{"note", "notes"}},
			{Name: "calendar", Keywords: []string{"event", "calendar", "meeting", "schedule", "meet"}},
			{Name: "gallery", Keywords: []string{"image", "photo", "picture", "gallery"}},
		},
	}
}

// LoadLexicon reads a YAML lexicon file. Sections left empty in the file
// keep their defaults, so a partial override file is valid.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read lexicon file %s: %w", path, err)
	}

	lex := DefaultLexicon()
	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("cannot parse lexicon file %s: %w", path, err)
	}

	if len(override.Affirmative) > 0 {
		lex.Affirmative = override.Affirmative
	}
	if len(override.Negative) > 0 {
		lex.Negative = override.Negative
	}
	if len(override.Categories) > 0 {
		lex.Categories = override.Categories
	}
	return lex, nil
}
