package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pitchroom/internal/platform/middleware"
	dErrors "pitchroom/pkg/domain-errors"
)

// SessionStore is satisfied by the session store implementations; declared
// here so the service does not depend on a concrete backend.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Config carries the identity knobs from process configuration.
type Config struct {
	// EditorEmail and EditorPasswordHash (bcrypt) form the single editor
	// credential. Identity federation is out of scope; this stands in for
	// the external provider the site delegates to.
	EditorEmail        string
	EditorPasswordHash string
	// AdminEmails lists principals allowed to write content.
	AdminEmails []string
	// DevMode treats every authenticated principal as an admin.
	DevMode    bool
	SessionTTL time.Duration
}

// Service implements login, logout, and session validation. Validate
// satisfies middleware.SessionValidator.
type Service struct {
	tokens     *TokenService
	sessions   SessionStore
	admins     map[string]struct{}
	editorHash []byte
	editor     string
	devMode    bool
	ttl        time.Duration
	logger     *slog.Logger
}

func NewService(tokens *TokenService, sessions SessionStore, cfg Config, logger *slog.Logger) *Service {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		admins[strings.ToLower(email)] = struct{}{}
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		tokens:     tokens,
		sessions:   sessions,
		admins:     admins,
		editorHash: []byte(cfg.EditorPasswordHash),
		editor:     strings.ToLower(cfg.EditorEmail),
		devMode:    cfg.DevMode,
		ttl:        ttl,
		logger:     logger,
	}
}

// Login verifies the editor credential and opens a session, returning the
// signed token to place in the session cookie.
func (s *Service) Login(ctx context.Context, email, password string) (string, Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || normalized != s.editor || len(s.editorHash) == 0 {
		return "", Session{}, dErrors.New(dErrors.CodeUnauthorized, "unknown email or password")
	}
	if err := bcrypt.CompareHashAndPassword(s.editorHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", Session{}, dErrors.New(dErrors.CodeUnauthorized, "unknown email or password")
		}
		return "", Session{}, fmt.Errorf("verify password: %w", err)
	}

	now := time.Now().UTC()
	session := Session{
		ID:        uuid.NewString(),
		Email:     normalized,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", Session{}, fmt.Errorf("save session: %w", err)
	}

	token, err := s.tokens.Generate(session.Email, session.ID, s.ttl)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.InfoContext(ctx, "editor logged in",
		"email", session.Email,
		"session_id", session.ID,
	)
	return token, session, nil
}

// Validate checks the token signature and confirms the session still exists
// server-side, so logout and expiry take effect immediately.
func (s *Service) Validate(ctx context.Context, token string) (middleware.Principal, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return middleware.Principal{}, err
	}
	session, err := s.sessions.Find(ctx, claims.SessionID)
	if err != nil {
		return middleware.Principal{}, dErrors.Wrap(dErrors.CodeUnauthorized, "session no longer valid", err)
	}
	if session.Expired(time.Now()) {
		return middleware.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
	}
	return middleware.Principal{
		Email:     session.Email,
		SessionID: session.ID,
		Admin:     s.isAdmin(session.Email),
	}, nil
}

// Logout revokes the session behind the token. Unknown or already-revoked
// sessions are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, claims.SessionID)
}

func (s *Service) isAdmin(email string) bool {
	if s.devMode {
		return true
	}
	_, ok := s.admins[strings.ToLower(email)]
	return ok
}
