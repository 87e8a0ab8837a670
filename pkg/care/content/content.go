// Package content ships the built-in curated topic packs and crisis lexicon.
package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"carebot/pkg/care"
)

//go:embed topics.json lexicon.json
var packsFS embed.FS

// Topics loads and validates the built-in topic packs.
func Topics() (care.Topics, error) {
	raw, err := packsFS.ReadFile("topics.json")
	if err != nil {
		return nil, fmt.Errorf("load topic packs: %w", err)
	}

	var topics care.Topics
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, fmt.Errorf("parse topic packs: %w", err)
	}

	if err := topics.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topic packs: %w", err)
	}

	return topics, nil
}

// Lexicon loads the built-in bilingual crisis lexicon.
func Lexicon() (care.Lexicon, error) {
	raw, err := packsFS.ReadFile("lexicon.json")
	if err != nil {
		return nil, fmt.Errorf("load crisis lexicon: %w", err)
	}

	var lexicon care.Lexicon
	if err := json.Unmarshal(raw, &lexicon); err != nil {
		return nil, fmt.Errorf("parse crisis lexicon: %w", err)
	}

	if len(lexicon) == 0 {
		return nil, fmt.Errorf("crisis lexicon is empty")
	}

	return lexicon, nil
}

// TopicsFromFile loads a topic pack override from disk.
func TopicsFromFile(path string) (care.Topics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topic packs: %w", err)
	}

	var topics care.Topics
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, fmt.Errorf("parse topic packs %s: %w", path, err)
	}

	if err := topics.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topic packs %s: %w", path, err)
	}

	return topics, nil
}

// LexiconFromFile loads a crisis lexicon override from disk.
func LexiconFromFile(path string) (care.Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crisis lexicon: %w", err)
	}

	var lexicon care.Lexicon
	if err := json.Unmarshal(raw, &lexicon); err != nil {
		return nil, fmt.Errorf("parse crisis lexicon %s: %w", path, err)
	}

	if len(lexicon) == 0 {
		return nil, fmt.Errorf("crisis lexicon %s is empty", path)
	}

	return lexicon, nil
}
