package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"carebot/pkg/care"
)

// Document is one indexed knowledge base entry.
type Document struct {
	ID    string    `json:"id"`
	Text  string    `json:"text"`
	Topic string    `json:"topic,omitempty"`
	Lang  care.Lang `json:"lang,omitempty"`
}

// LoadCorpus reads documents from a JSON file, or from every *.json file in
// a directory. Each file holds a JSON array of documents.
func LoadCorpus(path string) ([]Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("corpus path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat corpus path: %w", err)
	}

	if !info.IsDir() {
		return loadCorpusFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		fileDocs, err := loadCorpusFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus directory %s contains no documents", path)
	}

	return docs, nil
}

func loadCorpusFile(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", path, err)
	}

	for i, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return nil, fmt.Errorf("corpus file %s: document %d has no id", path, i)
		}
		if strings.TrimSpace(doc.Text) == "" {
			return nil, fmt.Errorf("corpus file %s: document %q has no text", path, doc.ID)
		}
	}

	return docs, nil
}
