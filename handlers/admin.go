// shnews/handlers/admin.go
package handlers

import (
	"database/sql"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shnews/config"
	"shnews/models"
)

// HandleAdminPanel serves the admin dashboard: every article, drafts
// included, plus site stats.
func HandleAdminPanel(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleAdminPanel")

	news, err := app.DB().ListNews(false)
	if err != nil {
		logger.Error("Failed to list news for admin panel", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not load the admin panel.")
		return
	}

	stats, err := app.DB().GetStats()
	if err != nil {
		logger.Error("Failed to collect stats for admin panel", "error", err)
	}

	render(w, r, app, "admin.html", map[string]interface{}{
		"Title": "Admin Panel",
		"News":  news,
		"Stats": stats,
		"Error": r.URL.Query().Get("error"),
	})
}

// redirectAdminError sends the caller back to the admin panel with an inline
// error message.
func redirectAdminError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/admin?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// HandleAddNews creates a news article from a multipart form, storing the
// uploaded image first so a rejected upload never leaves a record behind.
func HandleAddNews(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleAddNews")

	if err := r.ParseMultipartForm(config.MaxUploadSize + 1024); err != nil {
		logger.Warn("Form parsing error", "error", err)
		redirectAdminError(w, r, "Could not read the submitted form.")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	body := strings.TrimSpace(r.FormValue("body"))
	if title == "" || body == "" {
		redirectAdminError(w, r, "Title and body are required.")
		return
	}
	if len(title) > config.MaxTitleLen || len(body) > config.MaxBodyLen {
		redirectAdminError(w, r, "Title or body exceeds the maximum length.")
		return
	}

	imageURL, thumbURL, _, err := processUpload(r, app, logger)
	if err != nil {
		logger.Warn("Image upload rejected", "error", err)
		redirectAdminError(w, r, "Image upload failed: "+err.Error())
		return
	}

	item := &models.News{
		Title:     title,
		Body:      body,
		Category:  r.FormValue("category"),
		Author:    r.FormValue("author"),
		ImageURL:  imageURL,
		ThumbURL:  thumbURL,
		Published: r.FormValue("published") == "on",
	}
	if item.Category == "" {
		item.Category = config.DefaultCategory
	}
	if item.Author == "" {
		item.Author = config.DefaultAuthor
	}

	newsID, err := app.DB().CreateNews(item)
	if err != nil {
		logger.Error("Failed to create news", "error", err)
		redirectAdminError(w, r, "Could not save the news item.")
		return
	}

	logger.Info("News created", "news_id", newsID, "published", item.Published)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleEditNews serves the edit form on GET and applies the edit on POST.
// Image handling on POST has two exclusive branches: a fresh upload replaces
// the stored files, an explicit removal request deletes them. Otherwise the
// image reference is left untouched.
func HandleEditNews(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleEditNews")

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
		logger.Error("Failed to load news for editing", "news_id", id, "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not load this news item.")
		return
	}

	if r.Method == http.MethodGet {
		render(w, r, app, "admin-edit.html", map[string]interface{}{
			"Title": "Edit: " + item.Title,
			"News":  item,
			"Error": r.URL.Query().Get("error"),
		})
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadSize + 1024); err != nil {
		logger.Warn("Form parsing error", "news_id", id, "error", err)
		redirectAdminError(w, r, "Could not read the submitted form.")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	body := strings.TrimSpace(r.FormValue("body"))
	if title == "" || body == "" {
		editURL := "/admin/edit-news/" + strconv.FormatInt(id, 10)
		http.Redirect(w, r, editURL+"?error="+url.QueryEscape("Title and body are required."), http.StatusSeeOther)
		return
	}

	item.Title = title
	item.Body = body
	item.Category = r.FormValue("category")
	item.Author = r.FormValue("author")
	item.Published = r.FormValue("published") == "on"
	if item.Category == "" {
		item.Category = config.DefaultCategory
	}
	if item.Author == "" {
		item.Author = config.DefaultAuthor
	}

	imageURL, thumbURL, hasUpload, err := processUpload(r, app, logger)
	if err != nil {
		logger.Warn("Image upload rejected", "news_id", id, "error", err)
		redirectAdminError(w, r, "Image upload failed: "+err.Error())
		return
	}

	if hasUpload {
		deleteNewsImages(app, logger, item)
		item.ImageURL = imageURL
		item.ThumbURL = thumbURL
	} else if r.FormValue("remove_image") == "true" {
		deleteNewsImages(app, logger, item)
		item.ImageURL = ""
		item.ThumbURL = ""
	}

	if err := app.DB().UpdateNews(item); err != nil {
		logger.Error("Failed to update news", "news_id", id, "error", err)
		redirectAdminError(w, r, "Could not save the news item.")
		return
	}

	logger.Info("News updated", "news_id", id)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleDeleteNews removes an article and its stored image files.
func HandleDeleteNews(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleDeleteNews")

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
		logger.Error("Failed to load news for deletion", "news_id", id, "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Could not delete this news item.")
		return
	}

	deleteNewsImages(app, logger, item)

	if err := app.DB().DeleteNews(id); err != nil {
		logger.Error("Failed to delete news", "news_id", id, "error", err)
		redirectAdminError(w, r, "Could not delete the news item.")
		return
	}

	logger.Info("News deleted", "news_id", id)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
