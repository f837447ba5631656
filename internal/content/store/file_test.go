package store

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"pitchroom/internal/content/models"
	dErrors "pitchroom/pkg/domain-errors"
	"pitchroom/pkg/platform/sentinel"
)

type FileStoreSuite struct {
	suite.Suite
	root  string
	store *FileStore
	ctx   context.Context
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.root = s.T().TempDir()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store, err := NewFileStore(s.root, logger)
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *FileStoreSuite) sampleDoc() models.Document {
	return models.Document{
		"meta": map[string]any{"title": "Dashboard", "subtitle": "Q3"},
		"keyMetrics": []any{
			map[string]any{"label": "ARR", "value": float64(1200000)},
		},
	}
}

// TestRoundTrip verifies writing then reading returns a deep-equal document
// despite the pretty-printing on disk.
func (s *FileStoreSuite) TestRoundTrip() {
	doc := s.sampleDoc()
	s.Require().NoError(s.store.Write(s.ctx, "pages/dashboard", doc))

	got, err := s.store.Read(s.ctx, "pages/dashboard")
	s.Require().NoError(err)
	s.Equal(doc, got)

	// The file really is pretty-printed, one document per logical path.
	raw, err := os.ReadFile(filepath.Join(s.root, "pages", "dashboard.json"))
	s.Require().NoError(err)
	s.Contains(string(raw), "\n  \"meta\"")
}

func (s *FileStoreSuite) TestIdempotentWrite() {
	doc := s.sampleDoc()
	s.Require().NoError(s.store.Write(s.ctx, "pages/dashboard", doc))
	first, err := os.ReadFile(filepath.Join(s.root, "pages", "dashboard.json"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Write(s.ctx, "pages/dashboard", doc))
	second, err := os.ReadFile(filepath.Join(s.root, "pages", "dashboard.json"))
	s.Require().NoError(err)

	s.Equal(first, second)
}

func (s *FileStoreSuite) TestReadMissingDocument() {
	_, err := s.store.Read(s.ctx, "pages/missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *FileStoreSuite) TestReadCorruptDocument() {
	file := filepath.Join(s.root, "pages", "broken.json")
	s.Require().NoError(os.MkdirAll(filepath.Dir(file), 0o755))
	s.Require().NoError(os.WriteFile(file, []byte("{not json"), 0o644))

	_, err := s.store.Read(s.ctx, "pages/broken")
	s.Require().ErrorIs(err, sentinel.ErrCorrupt)
}

func (s *FileStoreSuite) TestExists() {
	ok, err := s.store.Exists(s.ctx, "pages/dashboard")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.Write(s.ctx, "pages/dashboard", s.sampleDoc()))
	ok, err = s.store.Exists(s.ctx, "pages/dashboard")
	s.Require().NoError(err)
	s.True(ok)
}

// TestEscapeRejected exercises the belt-and-suspenders containment check
// with paths the allow-list would normally have stopped already.
func (s *FileStoreSuite) TestEscapeRejected() {
	_, err := s.store.Read(s.ctx, "../outside")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodePathEscape))

	err = s.store.Write(s.ctx, "../outside", s.sampleDoc())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodePathEscape))
}

// TestSymlinkEscapeRejected plants a symlink inside the root pointing
// outside and verifies resolution still refuses to follow it.
func (s *FileStoreSuite) TestSymlinkEscapeRejected() {
	outside := s.T().TempDir()
	link := filepath.Join(s.root, "pages")
	s.Require().NoError(os.Symlink(outside, link))

	err := s.store.Write(s.ctx, "pages/dashboard", s.sampleDoc())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodePathEscape))

	entries, err := os.ReadDir(outside)
	s.Require().NoError(err)
	s.Empty(entries)
}
