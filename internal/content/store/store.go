// Package store persists content documents, one per logical path.
package store

import (
	"context"

	"pitchroom/internal/content/models"
)

// Store is interface-driven so the service layer stays testable and
// persistence can move between file, memory, and Postgres backends without
// rewiring business code.
type Store interface {
	// Read returns the document at the logical path. Missing documents
	// yield sentinel.ErrNotFound; unparseable ones sentinel.ErrCorrupt.
	Read(ctx context.Context, logical string) (models.Document, error)
	// Write overwrites the document at the logical path, creating any
	// missing containers. Last writer wins; there is no version check.
	Write(ctx context.Context, logical string, doc models.Document) error
	// Exists reports whether a document is stored at the logical path.
	Exists(ctx context.Context, logical string) (bool, error)
}
