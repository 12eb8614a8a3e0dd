// shnews/handlers/render.go

package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"shnews/config"
)

var (
	templates *template.Template
)

// LoadTemplates parses all HTML files from the templates directory.
func LoadTemplates() error {
	funcMap := template.FuncMap{
		"safeHTML":   func(s string) template.HTML { return template.HTML(s) },
		"formatTime": func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
		"formatISO":  func(t time.Time) string { return t.Format(time.RFC3339) },
		"default": func(dflt, val string) string {
			if val == "" {
				return dflt
			}
			return val
		},
		"truncate": func(max int, s string) string {
			runes := []rune(s)
			if len(runes) > max {
				return string(runes[:max]) + "..."
			}
			return s
		},
	}
	templateFiles, err := filepath.Glob("templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to find templates: %w", err)
	}
	templates = template.New("").Funcs(funcMap)
	templates = template.Must(templates.ParseFiles(templateFiles...))
	return nil
}

// render executes the given content template inside the layout.
func render(w http.ResponseWriter, r *http.Request, app App, contentTmpl string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}

	data["AppVersion"] = config.AppVersion
	data["Year"] = time.Now().Year()
	if user := CurrentUser(r); user != nil {
		data["CurrentUser"] = user
	}
	if sess := CurrentSession(r); sess != nil && sess.IsAdmin {
		data["IsAdmin"] = true
	}

	contentBuf := new(bytes.Buffer)
	err := templates.ExecuteTemplate(contentBuf, contentTmpl, data)
	if err != nil {
		app.Logger().Error("Error rendering content template", "template", contentTmpl, "error", err)
		http.Error(w, "Failed to render page content", http.StatusInternalServerError)
		return
	}
	data["Content"] = template.HTML(contentBuf.String())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		app.Logger().Error("Error rendering layout template", "error", err)
	}
}

// renderError serves the error page with the given status code.
func renderError(w http.ResponseWriter, r *http.Request, app App, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	render(w, r, app, "error.html", map[string]interface{}{
		"Title":   fmt.Sprintf("Error %d", status),
		"Status":  status,
		"Message": message,
	})
}
