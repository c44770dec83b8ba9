package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"parkspace-backend/internal/config"
	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/security"
)

const requestIDHeader = "X-Request-ID"

type principalKey struct{}

// PrincipalFrom returns the authenticated caller, or the zero Principal for
// anonymous requests on public routes.
func PrincipalFrom(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey{}).(domain.Principal)
	return p
}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// requestContext tags the request with an id (the caller's, when sent) and
// logs one line per request once it completes.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.NewContext(r.Context(), "request_id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.InfoContext(ctx, "HTTP request",
			"method", r.Method,
			"route", routeTemplate(r),
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "Handler panic recovered", "panic", rec, "route", routeTemplate(r))
				writeError(w, r, domain.ErrPersistence)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.ToUpper(h[0:7]) == "BEARER " {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate resolves the caller from the bearer token according to the
// route's security level. Public routes are served without a principal.
func authenticate(tokens security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			level := config.GetSecurityLevel(r.Method, routeTemplate(r))
			if level == config.SecurityPublic {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeError(w, r, domain.ErrUnauthenticated)
				return
			}
			claims, err := tokens.ValidateToken(token)
			if err != nil {
				logger.DebugContext(r.Context(), "Token rejected", "error", err)
				writeError(w, r, domain.ErrUnauthenticated)
				return
			}

			ctx := withPrincipal(r.Context(), claims.Principal())
			ctx = logger.NewContext(ctx, "user_id", claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
