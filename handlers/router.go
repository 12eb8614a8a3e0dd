package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)
	mux.Use(SessionMiddleware(app))

	// Static file servers
	mux.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(app.UploadDir()))))
	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("./static"))))

	// Public pages
	mux.Get("/", MakeHandler(app, HandleHome))
	mux.Get("/news/{newsID}", MakeHandler(app, HandleNewsDetail))
	mux.Post("/news/{newsID}/comment", MakeHandler(app, HandleAddComment))
	mux.Get("/about", MakeHandler(app, HandleAbout))
	mux.Get("/contact", MakeHandler(app, HandleContact))

	// Diagnostics
	mux.Get("/health", MakeHandler(app, HandleHealth))
	mux.Get("/debug", MakeHandler(app, HandleDebug))

	// User authentication
	mux.Get("/register", MakeHandler(app, ShowRegister))
	mux.Post("/register", MakeHandler(app, HandleRegister))
	mux.Get("/login", MakeHandler(app, ShowLogin))
	mux.Post("/login", MakeHandler(app, HandleLogin))
	mux.Get("/logout", MakeHandler(app, HandleLogout))

	// Administrator authentication
	mux.Get("/admin/login", MakeHandler(app, ShowAdminLogin))
	mux.Post("/admin/login", MakeHandler(app, HandleAdminLogin))
	mux.Get("/admin/logout", MakeHandler(app, HandleAdminLogout))

	// Admin panel, gated on the session's admin flag
	mux.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/admin", MakeHandler(app, HandleAdminPanel))
		r.Post("/admin/add-news", MakeHandler(app, HandleAddNews))
		r.Get("/admin/edit-news/{newsID}", MakeHandler(app, HandleEditNews))
		r.Post("/admin/edit-news/{newsID}", MakeHandler(app, HandleEditNews))
		r.Post("/admin/delete-news/{newsID}", MakeHandler(app, HandleDeleteNews))
	})

	return mux
}
