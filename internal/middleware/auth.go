package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fittrack/fittrack/internal/auth"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the authenticated token claims set by AuthCheck.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return claims, ok
}

type AuthMiddlewareHandler struct {
	tokenChecker auth.TokenChecker
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(tokenChecker auth.TokenChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		tokenChecker: tokenChecker,
		allowedPaths: map[string]bool{
			"/":              true,
			"/version":       true,
			"/auth/register": true,
			"/auth/login":    true,
		},
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// websocket clients can't set headers from the browser, they pass the
	// token as a query param instead
	return r.URL.Query().Get("token")
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			claims, err := h.tokenChecker.VerifyToken(ctx, token)
			if err != nil {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s: %s", r.URL.Path, err)
				pkg.WriteError(w, "unauthorized", "invalid or expired token", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), claimsContextKey{}, claims),
			))
		})
	}
}

// RequireAdmin gates a subrouter to tokens carrying the admin role. Must run
// after AuthCheck.
func RequireAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Role != auth.RoleAdmin {
				log.Tracef("[forbidden] [auth middleware] non-admin => %s", r.URL.Path)
				pkg.WriteError(w, "forbidden", "admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
