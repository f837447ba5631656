package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"pitchroom/pkg/platform/httputil"

	dErrors "pitchroom/pkg/domain-errors"
)

// SessionCookieName carries the signed session token for browser clients.
const SessionCookieName = "pitchroom_session"

// Principal represents the authenticated identity attached to a request.
type Principal struct {
	Email     string
	SessionID string
	Admin     bool
}

// SessionValidator checks a session token and resolves its principal.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (Principal, error)
}

type contextKeyPrincipal struct{}

// ContextKeyPrincipal is exported for use in handlers.
var ContextKeyPrincipal = contextKeyPrincipal{}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(Principal)
	return p, ok
}

// TokenFromRequest extracts the session token from the session cookie,
// falling back to a bearer Authorization header for API clients.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	const bearerPrefix = "Bearer "
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return after
	}
	return ""
}

// RequireAuth rejects requests without a valid session.
func RequireAuth(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := TokenFromRequest(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing session token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing session"))
				return
			}

			principal, err := validator.Validate(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid session token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session"))
				return
			}

			ctx = context.WithValue(ctx, ContextKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates write endpoints. Must run after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := GetPrincipal(ctx)
			if !ok {
				logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing session"))
				return
			}
			if !principal.Admin {
				logger.WarnContext(ctx, "forbidden - principal is not an admin",
					"email", principal.Email,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
