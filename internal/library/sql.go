package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	link          TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	creation_date TEXT NOT NULL DEFAULT '',
	author        TEXT NOT NULL DEFAULT '',
	subject       TEXT NOT NULL DEFAULT '',
	keywords      TEXT NOT NULL DEFAULT ''
)`

const upsert = `
INSERT INTO documents (id, link, title, creation_date, author, subject, keywords)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	link = excluded.link,
	title = excluded.title,
	creation_date = excluded.creation_date,
	author = excluded.author,
	subject = excluded.subject,
	keywords = excluded.keywords`

// SQLStore serves the catalog from a documents table in SQLite or Postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLite opens (and if needed creates) a SQLite catalog.
func OpenSQLite(path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLStore{db: db, driver: "sqlite"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects to a Postgres catalog.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &SQLStore{db: db, driver: "pgx"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// List returns every document sorted by ID.
func (s *SQLStore) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, link, title, creation_date, author, subject, keywords FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Link, &d.Title, &d.CreationDate, &d.Author, &d.Subject, &d.Keywords); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortByID(docs)
	return docs, nil
}

// Import upserts docs in one transaction. Documents without an ID get a
// generated one.
func (s *SQLStore) Import(ctx context.Context, docs []Document) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsert))
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Link, d.Title, d.CreationDate, d.Author, d.Subject, d.Keywords); err != nil {
			return 0, fmt.Errorf("import document %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(docs), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
