// shnews/handlers/handlers.go

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"shnews/config"
	"shnews/database"
	"shnews/models"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.Service
	Logger() *slog.Logger
	UploadDir() string
	Storage() models.StorageService
	LoginLimiter() *models.RateLimiter
	Cookies() *securecookie.SecureCookie
	Production() bool
}

// MakeHandler adapts a handler function taking the App interface.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"error":"Failed to marshal JSON response"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

// newsIDParam parses the {newsID} URL parameter.
func newsIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "newsID"), 10, 64)
	return id, err == nil && id > 0
}

// HandleHome serves the public homepage listing published news newest-first.
func HandleHome(w http.ResponseWriter, r *http.Request, app App) {
	news, err := app.DB().ListNews(true)
	if err != nil {
		app.Logger().Error("Failed to list published news", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not load the news feed.")
		return
	}
	render(w, r, app, "home.html", map[string]interface{}{
		"Title": "Community News",
		"News":  news,
	})
}

// HandleNewsDetail serves a single article with its comments. Comment form
// failures come back through the "error" query parameter and are shown inline.
func HandleNewsDetail(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleNewsDetail")
	id, ok := newsIDParam(r)
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "That news item does not exist.")
		return
	}

	item, err := app.DB().GetNews(id)
	if err != nil {
		if err == sql.ErrNoRows {
			renderError(w, r, app, http.StatusNotFound, "That news item does not exist.")
			return
		}
		logger.Error("Failed to load news item", "news_id", id, "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not load this news item.")
		return
	}

	comments, err := app.DB().GetCommentsForNews(id)
	if err != nil {
		logger.Error("Failed to load comments", "news_id", id, "error", err)
	}

	render(w, r, app, "news.html", map[string]interface{}{
		"Title":        item.Title,
		"News":         item,
		"Comments":     comments,
		"CommentError": r.URL.Query().Get("error"),
	})
}

// HandleAbout serves the static "About" page.
func HandleAbout(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, "about.html", map[string]interface{}{
		"Title": "About",
	})
}

// HandleContact serves the static "Contact" page.
func HandleContact(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, "contact.html", map[string]interface{}{
		"Title": "Contact",
	})
}

// HandleHealth reports database connectivity as JSON.
func HandleHealth(w http.ResponseWriter, r *http.Request, app App) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.DB().Ping(ctx); err != nil {
		app.Logger().Error("Health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "down",
		}, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "up",
	}, app)
}

// HandleDebug reports version and record counts as JSON. No secrets.
func HandleDebug(w http.ResponseWriter, r *http.Request, app App) {
	stats, err := app.DB().GetStats()
	if err != nil {
		app.Logger().Error("Failed to collect stats for /debug", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"}, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"version": config.AppVersion,
		"stats":   stats,
	}, app)
}
