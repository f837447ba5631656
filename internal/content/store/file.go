package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pitchroom/internal/content/models"
	dErrors "pitchroom/pkg/domain-errors"
	"pitchroom/pkg/platform/sentinel"
)

// FileStore keeps one pretty-printed JSON file per logical path under a
// content root: {root}/{logical}.json.
type FileStore struct {
	root   string
	logger *slog.Logger
}

// NewFileStore resolves and remembers the absolute content root.
func NewFileStore(root string, logger *slog.Logger) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve content root: %w", err)
	}
	return &FileStore{root: abs, logger: logger}, nil
}

// Root returns the absolute content root directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) Read(ctx context.Context, logical string) (models.Document, error) {
	file, err := s.resolve(logical)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", logical, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read document %s: %w", logical, err)
	}

	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.ErrorContext(ctx, "stored document is not parseable JSON",
			"path", logical,
			"file", file,
			"error", err,
		)
		return nil, fmt.Errorf("document %s: %w", logical, sentinel.ErrCorrupt)
	}
	return doc, nil
}

func (s *FileStore) Write(ctx context.Context, logical string, doc models.Document) error {
	file, err := s.resolve(logical)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create content directory: %w", err)
	}

	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", logical, err)
	}
	pretty = append(pretty, '\n')

	// Single write call; atomic from the application's perspective.
	if err := os.WriteFile(file, pretty, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", logical, err)
	}

	s.logger.DebugContext(ctx, "document written",
		"path", logical,
		"file", file,
		"bytes", len(pretty),
	)
	return nil
}

func (s *FileStore) Exists(_ context.Context, logical string) (bool, error) {
	file, err := s.resolve(logical)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// resolve maps a logical path to its file and verifies the result stays
// inside the content root even after symlink evaluation. The allow-list
// already rejected hostile paths; this is belt-and-suspenders against
// symlink or encoding tricks, and violations carry CodePathEscape.
func (s *FileStore) resolve(logical string) (string, error) {
	candidate := filepath.Join(s.root, filepath.FromSlash(logical)+".json")

	if !s.contained(candidate) {
		return "", dErrors.New(dErrors.CodePathEscape, fmt.Sprintf("path %q escapes the content root", logical))
	}

	// Evaluate symlinks on the deepest existing ancestor so a link planted
	// inside the root cannot point writes elsewhere.
	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve document path: %w", err)
	}
	rootResolved, err := resolveExisting(s.root)
	if err != nil {
		return "", fmt.Errorf("resolve content root: %w", err)
	}
	if resolved != rootResolved && !strings.HasPrefix(resolved, rootResolved+string(filepath.Separator)) {
		return "", dErrors.New(dErrors.CodePathEscape, fmt.Sprintf("path %q escapes the content root", logical))
	}
	return candidate, nil
}

func (s *FileStore) contained(candidate string) bool {
	rel, err := filepath.Rel(s.root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveExisting walks up to the deepest existing ancestor, evaluates its
// symlinks, and rejoins the missing suffix.
func resolveExisting(p string) (string, error) {
	var suffix []string
	current := p
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, suffix...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		suffix = append([]string{filepath.Base(current)}, suffix...)
		current = parent
	}
}
