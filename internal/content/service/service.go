// Package service orchestrates document reads and writes: path resolution,
// schema validation per policy, persistence, metrics, and audit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pitchroom/internal/audit"
	"pitchroom/internal/content/models"
	"pitchroom/internal/content/paths"
	"pitchroom/internal/content/schema"
	"pitchroom/internal/content/store"
	"pitchroom/internal/platform/metrics"
	dErrors "pitchroom/pkg/domain-errors"
	"pitchroom/pkg/platform/sentinel"
)

// ReadResult is a document plus whether it passed schema validation.
// Validated is false only under the permissive policy; the strict policy
// fails the read instead.
type ReadResult struct {
	Document  models.Document
	Validated bool
}

// WriteActor identifies who performed a write, for the audit trail.
type WriteActor struct {
	Email     string
	RequestID string
	IP        string
	UserAgent string
}

// Service wires the catalog, registry, store, and observability together.
type Service struct {
	catalog  *paths.Catalog
	registry *schema.Registry
	store    store.Store
	policy   schema.Policy
	metrics  *metrics.Metrics
	recorder *audit.Recorder
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(
	catalog *paths.Catalog,
	registry *schema.Registry,
	st store.Store,
	policy schema.Policy,
	m *metrics.Metrics,
	recorder *audit.Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		catalog:  catalog,
		registry: registry,
		store:    st,
		policy:   policy,
		metrics:  m,
		recorder: recorder,
		logger:   logger,
		tracer:   otel.Tracer("pitchroom/content"),
	}
}

// Read fetches and validates the document at the raw request path.
func (s *Service) Read(ctx context.Context, rawPath string) (ReadResult, error) {
	ctx, span := s.tracer.Start(ctx, "content.read",
		trace.WithAttributes(attribute.String("content.path", rawPath)))
	defer span.End()

	logical, err := s.catalog.Resolve(rawPath)
	if err != nil {
		span.RecordError(err)
		return ReadResult{}, err
	}

	doc, err := s.store.Read(ctx, logical)
	if err != nil {
		span.RecordError(err)
		return ReadResult{}, s.translateStoreError(logical, err)
	}

	result := ReadResult{Document: doc, Validated: true}
	sch := s.registry.ForPath(logical)
	if verr := schema.SafeValidate(sch, doc, "read "+logical); verr != nil {
		s.metrics.ValidationFailures.WithLabelValues(logical).Inc()
		if s.policy == schema.PolicyStrict {
			s.logger.ErrorContext(ctx, "stored document failed schema validation",
				"path", logical,
				"policy", string(s.policy),
				"error", verr,
			)
			span.RecordError(verr)
			return ReadResult{}, verr
		}
		// Availability over strictness: serve the document anyway, flagged.
		s.metrics.DegradedServes.WithLabelValues(logical).Inc()
		s.logger.WarnContext(ctx, "serving unvalidated document",
			"path", logical,
			"policy", string(s.policy),
			"error", verr,
		)
		result.Validated = false
	}

	s.metrics.ContentReads.WithLabelValues(logical).Inc()
	s.logger.DebugContext(ctx, "document read",
		"path", logical,
		"validated", result.Validated,
	)
	return result, nil
}

// Write validates and persists a document. Validation is always strict on
// the write side; a failed write never reaches the store, so the stored
// document is untouched.
func (s *Service) Write(ctx context.Context, rawPath string, doc models.Document, actor WriteActor) (time.Time, error) {
	ctx, span := s.tracer.Start(ctx, "content.write",
		trace.WithAttributes(attribute.String("content.path", rawPath)))
	defer span.End()

	logical, err := s.catalog.Resolve(rawPath)
	if err != nil {
		span.RecordError(err)
		return time.Time{}, err
	}

	sch := s.registry.ForPath(logical)
	if verr := schema.SafeValidate(sch, doc, "write "+logical); verr != nil {
		s.metrics.ValidationFailures.WithLabelValues(logical).Inc()
		s.logger.WarnContext(ctx, "write rejected by schema validation",
			"path", logical,
			"actor", actor.Email,
			"error", verr,
		)
		s.recorder.Record(audit.Event{
			Action:    audit.ActionWriteRejected,
			Path:      logical,
			Actor:     actor.Email,
			RequestID: actor.RequestID,
			IP:        actor.IP,
			Reason:    "validation_failed",
		}.WithUserAgent(actor.UserAgent))
		span.RecordError(verr)
		return time.Time{}, verr
	}

	if err := s.store.Write(ctx, logical, doc); err != nil {
		span.RecordError(err)
		return time.Time{}, s.translateStoreError(logical, err)
	}

	now := time.Now().UTC()
	s.metrics.ContentWrites.WithLabelValues(logical).Inc()
	s.recorder.Record(audit.Event{
		Timestamp: now,
		Action:    audit.ActionDocumentWritten,
		Path:      logical,
		Actor:     actor.Email,
		RequestID: actor.RequestID,
		IP:        actor.IP,
	}.WithUserAgent(actor.UserAgent))
	s.logger.InfoContext(ctx, "document written",
		"path", logical,
		"actor", actor.Email,
		"request_id", actor.RequestID,
	)
	return now, nil
}

func (s *Service) translateStoreError(logical string, err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(dErrors.CodeNotFound, "document not found: "+logical, err)
	case errors.Is(err, sentinel.ErrCorrupt):
		return dErrors.Wrap(dErrors.CodeCorruptDocument, "stored document is corrupt: "+logical, err)
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "content store failure", err)
	}
}
