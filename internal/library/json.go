package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/hunterwarburton/fva/internal/logger"
)

// ErrInvalidJSON is returned when the catalog file is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON file")

// JSONStore serves a catalog read from a JSON array on disk. Entries may use
// plain keys (Title) or PDF metadata keys (/Title).
type JSONStore struct {
	path string

	mu   sync.RWMutex
	docs []Document
}

// OpenJSON reads the catalog at path.
func OpenJSON(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *JSONStore) Path() string { return s.path }

// Reload re-reads the file. On error the previous catalog is kept.
func (s *JSONStore) Reload() error {
	docs, err := readCatalog(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	logger.Info("Loaded %d documents from %s", len(docs), s.path)
	return nil
}

// List returns a sorted copy of the catalog.
func (s *JSONStore) List(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	s.mu.RUnlock()
	SortByID(out)
	return out, nil
}

func (s *JSONStore) Close() error { return nil }

func readCatalog(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a JSON array of catalog entries.
func ParseCatalog(data []byte) ([]Document, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	docs := make([]Document, 0, len(raw))
	for _, entry := range raw {
		docs = append(docs, Document{
			ID:           field(entry, "id", "ID", "/ID"),
			Link:         field(entry, "Link", "link", "/Link"),
			Title:        field(entry, "Title", "title", "/Title"),
			CreationDate: field(entry, "CreationDate", "creation_date", "/CreationDate"),
			Author:       field(entry, "Author", "author", "/Author"),
			Subject:      field(entry, "Subject", "subject", "/Subject"),
			Keywords:     field(entry, "Keywords", "keywords", "/Keywords"),
		})
	}
	return docs, nil
}

// field returns the first present key rendered as a string.
func field(entry map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := entry[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			b, _ := json.Marshal(t)
			return string(b)
		}
	}
	return ""
}
