// Package handler is the thin HTTP layer over the content service.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"log/slog"

	"pitchroom/internal/content/models"
	"pitchroom/internal/content/service"
	"pitchroom/internal/platform/metrics"
	"pitchroom/internal/platform/middleware"
	dErrors "pitchroom/pkg/domain-errors"
	"pitchroom/pkg/platform/httputil"
)

// WriteResponse is the success envelope for document writes.
type WriteResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler exposes GET/POST /api/data/{path...}.
type Handler struct {
	content   *service.Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
	validator middleware.SessionValidator
}

func New(content *service.Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.SessionValidator) *Handler {
	return &Handler{
		content:   content,
		logger:    logger,
		metrics:   m,
		validator: validator,
	}
}

// Register mounts the content routes. Reads are public; writes require an
// authenticated admin.
func (h *Handler) Register(r chi.Router) {
	dataRouter := chi.NewRouter()
	dataRouter.Use(middleware.Recovery(h.logger))
	dataRouter.Use(middleware.RequestID)
	dataRouter.Use(middleware.Logger(h.logger))
	dataRouter.Use(middleware.Timeout(30 * time.Second))
	dataRouter.Use(middleware.ContentTypeJSON)
	dataRouter.Use(middleware.Latency(h.metrics, "/api/data"))

	dataRouter.Get("/*", h.handleRead)
	dataRouter.With(
		middleware.RequireAuth(h.validator, h.logger),
		middleware.RequireAdmin(h.logger),
	).Post("/*", h.handleWrite)

	r.Mount("/api/data", dataRouter)
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawPath := chi.URLParam(r, "*")

	result, err := h.content.Read(ctx, rawPath)
	if err != nil {
		h.logger.WarnContext(ctx, "document read failed",
			"path", rawPath,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result.Document)
}

func (h *Handler) handleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawPath := chi.URLParam(r, "*")
	requestID := middleware.GetRequestID(ctx)

	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		// Unreachable when RequireAuth is configured correctly.
		h.logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidPayload, "request body is not valid JSON"))
		return
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidPayload, "request body must be a JSON object"))
		return
	}

	actor := service.WriteActor{
		Email:     principal.Email,
		RequestID: requestID,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	stamp, err := h.content.Write(ctx, rawPath, models.Document(obj), actor)
	if err != nil {
		h.logger.WarnContext(ctx, "document write failed",
			"path", rawPath,
			"actor", principal.Email,
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, WriteResponse{
		Success:   true,
		Message:   "document saved",
		Timestamp: stamp,
	})
}
