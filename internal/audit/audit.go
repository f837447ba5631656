// Package audit records who changed which document. Events are emitted
// from the content service, buffered, and drained by a background worker so
// publishing never blocks request handling.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/mssola/useragent"
)

// Action names what happened to a document.
type Action string

const (
	ActionDocumentWritten Action = "document_written"
	ActionWriteRejected   Action = "write_rejected"
	ActionLogin           Action = "login"
	ActionLogout          Action = "logout"
)

// Event captures one audited action. Keep it transport-agnostic so sinks
// can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Path      string    `json:"path,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	OS        string    `json:"os,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// WithUserAgent fills Browser and OS from a raw User-Agent header.
func (e Event) WithUserAgent(raw string) Event {
	if raw == "" {
		return e
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name != "" {
		e.Browser = name + " " + version
	}
	e.OS = ua.OS()
	return e
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the structured log; always active.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.Logger.InfoContext(ctx, "audit",
		"action", string(event.Action),
		"path", event.Path,
		"actor", event.Actor,
		"request_id", event.RequestID,
		"ip", event.IP,
		"browser", event.Browser,
		"os", event.OS,
		"reason", event.Reason,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
