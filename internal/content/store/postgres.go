package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"pitchroom/internal/content/models"
	"pitchroom/pkg/platform/sentinel"
)

// Postgres persists documents in a single table keyed by logical path with
// a JSONB body. Selected when DATABASE_URL is set; the schema is managed
// out of band:
//
//	CREATE TABLE content_documents (
//	    path       TEXT PRIMARY KEY,
//	    body       JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects and pings the database.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection; used by integration tests.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Read(ctx context.Context, logical string) (models.Document, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM content_documents WHERE path = $1`, logical,
	).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("document %s: %w", logical, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read document %s: %w", logical, err)
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("document %s: %w", logical, sentinel.ErrCorrupt)
	}
	return doc, nil
}

func (s *Postgres) Write(ctx context.Context, logical string, doc models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", logical, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_documents (path, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = now()
	`, logical, body)
	if err != nil {
		return fmt.Errorf("write document %s: %w", logical, err)
	}
	return nil
}

func (s *Postgres) Exists(ctx context.Context, logical string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM content_documents WHERE path = $1)`, logical,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document %s: %w", logical, err)
	}
	return exists, nil
}

// Close releases the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}
