package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"shnews/models"

	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	SessionKey ContextKey = "session"
	UserKey    ContextKey = "user"
)

// SessionMiddleware resolves the session cookie to its server-side record and
// injects the session (and its user, if one is attached) into the request
// context. Requests without a valid session proceed anonymously.
func SessionMiddleware(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessionToken(r, app)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := app.DB().GetSession(token)
			if err != nil {
				if err != sql.ErrNoRows {
					app.Logger().Error("Session lookup failed", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			if sess.UserID.Valid {
				user, err := app.DB().GetUserByID(sess.UserID.Int64)
				if err == nil {
					ctx = context.WithValue(ctx, UserKey, user)
				} else if err != sql.ErrNoRows {
					app.Logger().Error("Session user lookup failed", "user_id", sess.UserID.Int64, "error", err)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates the admin panel routes. Sessions without the admin flag
// are redirected to the admin login page; the downstream handler never runs.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := CurrentSession(r)
		if sess == nil || !sess.IsAdmin {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentSession returns the session attached to the request, or nil.
func CurrentSession(r *http.Request) *models.Session {
	sess, _ := r.Context().Value(SessionKey).(*models.Session)
	return sess
}

// CurrentUser returns the authenticated user attached to the request, or nil.
func CurrentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserKey).(*models.User)
	return user
}

// NewStructuredLogger logs each request through slog in the application's
// JSON format.
func NewStructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
