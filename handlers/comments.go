// shnews/handlers/comments.go
package handlers

import (
	"database/sql"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shnews/config"
)

// HandleAddComment persists a comment from an authenticated user. Failures
// redirect back to the news detail page with an inline message and mutate
// nothing. Ratings are clamped into [0,5]; a missing or unparsable rating is
// stored as NULL.
func HandleAddComment(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleAddComment")

	id, ok := newsIDParam(r)
	if !ok {
		renderError(w, r, app, http.StatusNotFound, "That news item does not exist.")
		return
	}
	newsURL := "/news/" + strconv.FormatInt(id, 10)
	reject := func(msg string) {
		http.Redirect(w, r, newsURL+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
	}

	if _, err := app.DB().GetNews(id); err != nil {
		if err == sql.ErrNoRows {
			renderError(w, r, app, http.StatusNotFound, "That news item does not exist.")
			return
		}
		logger.Error("Failed to load news for comment", "news_id", id, "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not save your comment.")
		return
	}

	user := CurrentUser(r)
	if user == nil {
		reject("You must be logged in to comment.")
		return
	}

	if err := r.ParseForm(); err != nil {
		reject("Could not read the comment form.")
		return
	}

	body := strings.TrimSpace(r.FormValue("body"))
	if body == "" {
		reject("Comment cannot be empty.")
		return
	}
	if len(body) > config.MaxCommentLen {
		reject("Comment is too long.")
		return
	}

	var rating sql.NullInt64
	if raw := strings.TrimSpace(r.FormValue("rating")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if v < config.MinRating {
				v = config.MinRating
			}
			if v > config.MaxRating {
				v = config.MaxRating
			}
			rating = sql.NullInt64{Int64: v, Valid: true}
		}
	}

	commentID, err := app.DB().CreateComment(id, user.ID, body, rating)
	if err != nil {
		logger.Error("Failed to create comment", "news_id", id, "user_id", user.ID, "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not save your comment.")
		return
	}

	logger.Info("Comment created", "comment_id", commentID, "news_id", id, "user_id", user.ID)
	http.Redirect(w, r, newsURL, http.StatusSeeOther)
}
