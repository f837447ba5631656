package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: document or session does not exist in the store
// - ErrCorrupt: stored bytes are not a parseable JSON document
// - ErrExpired: session has expired
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, schema mismatch), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrCorrupt     = errors.New("corrupt document")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
