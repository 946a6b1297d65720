// Package library lists the documents behind the vector index.
package library

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Document is one catalog entry.
type Document struct {
	ID           string `json:"id"`
	Link         string `json:"link,omitempty"`
	Title        string `json:"title"`
	CreationDate string `json:"creation_date"`
	Author       string `json:"author"`
	Subject      string `json:"subject"`
	Keywords     string `json:"keywords"`
}

// Store returns the catalog.
type Store interface {
	List(ctx context.Context) ([]Document, error)
	Close() error
}

// Importer is implemented by stores that can be loaded from another catalog.
type Importer interface {
	Import(ctx context.Context, docs []Document) (int, error)
}

// Open picks a store from source: a postgres:// or postgresql:// DSN, a
// SQLite file ending in .db or .sqlite, or otherwise a JSON file path.
func Open(ctx context.Context, source string) (Store, error) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		s, err := OpenPostgres(ctx, source)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		s, err := OpenSQLite(source)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := OpenJSON(source)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// SortByID orders documents by ID, numerically when both IDs are numbers.
func SortByID(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, errA := strconv.Atoi(docs[i].ID)
		b, errB := strconv.Atoi(docs[j].ID)
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return docs[i].ID < docs[j].ID
	})
}
