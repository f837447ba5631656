package config

import (
	"os"
	"strings"
	"time"

	pstrings "pitchroom/pkg/platform/strings"
)

// Environment selects validation strictness and auth behavior.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Server captures process-level configuration. Everything comes from the
// environment so main stays lean.
type Server struct {
	Addr        string
	Environment string

	// ContentRoot is the directory holding one JSON file per logical path.
	ContentRoot string
	// ContentManifest optionally overrides the embedded path allow-list.
	ContentManifest string
	// DatabaseURL switches document persistence to Postgres when set.
	DatabaseURL string

	AdminEmails        []string
	EditorEmail        string
	EditorPasswordHash string
	SessionSigningKey  string
	SessionTTL         time.Duration

	Redis        RedisConfig
	KafkaBrokers []string
}

// RedisConfig configures the optional Redis-backed session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsDevelopment reports whether the process runs with development defaults
// (strict validation, every authenticated principal is an admin).
func (s Server) IsDevelopment() bool {
	return s.Environment != EnvProduction
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("PITCHROOM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := os.Getenv("PITCHROOM_ENV")
	if env != EnvProduction {
		env = EnvDevelopment
	}

	root := os.Getenv("CONTENT_ROOT")
	if root == "" {
		root = "data"
	}

	signingKey := os.Getenv("SESSION_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	ttl := 12 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			ttl = parsed
		}
	}

	return Server{
		Addr:               addr,
		Environment:        env,
		ContentRoot:        root,
		ContentManifest:    os.Getenv("CONTENT_MANIFEST"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AdminEmails:        splitEmailList(os.Getenv("ADMIN_EMAILS")),
		EditorEmail:        os.Getenv("EDITOR_EMAIL"),
		EditorPasswordHash: os.Getenv("EDITOR_PASSWORD_HASH"),
		SessionSigningKey:  signingKey,
		SessionTTL:         ttl,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(raw, ","))
}

func splitEmailList(raw string) []string {
	if raw == "" {
		return nil
	}
	return pstrings.DedupeAndTrimLower(strings.Split(raw, ","))
}
