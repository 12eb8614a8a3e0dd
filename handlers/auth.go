// shnews/handlers/auth.go
package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"shnews/config"
	"shnews/utils"

	"github.com/google/uuid"
)

const sessionCookieName = "shnews_session"

// sessionToken reads and decodes the signed session cookie.
func sessionToken(r *http.Request, app App) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var token string
	if err := app.Cookies().Decode(sessionCookieName, cookie.Value, &token); err != nil {
		return "", false
	}
	return token, true
}

// beginSession creates a server-side session record and sets the signed
// cookie carrying its token.
func beginSession(w http.ResponseWriter, app App, userID sql.NullInt64, isAdmin bool) error {
	token := uuid.New().String()
	expires := utils.GetTime().Add(config.SessionMaxAgeDays * 24 * time.Hour)
	if err := app.DB().CreateSession(token, userID, isAdmin, expires); err != nil {
		return err
	}
	encoded, err := app.Cookies().Encode(sessionCookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   app.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// endSession destroys the session record and expires the cookie. Safe to call
// with no session present.
func endSession(w http.ResponseWriter, r *http.Request, app App) {
	if token, ok := sessionToken(r, app); ok {
		if err := app.DB().DeleteSession(token); err != nil {
			app.Logger().Error("Failed to delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ShowRegister serves the registration form.
func ShowRegister(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, "register.html", map[string]interface{}{
		"Title": "Register",
	})
}

// HandleRegister creates a new user account.
func HandleRegister(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleRegister")
	if err := r.ParseForm(); err != nil {
		renderError(w, r, app, http.StatusBadRequest, "Could not read the registration form.")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	retry := func(msg string) {
		render(w, r, app, "register.html", map[string]interface{}{
			"Title": "Register",
			"Error": msg,
			"Name":  name,
			"Email": email,
		})
	}

	if name == "" || email == "" || password == "" {
		retry("All fields are required.")
		return
	}
	if len(name) > config.MaxNameLen {
		retry("Name is too long.")
		return
	}

	if _, err := app.DB().GetUserByEmail(email); err == nil {
		retry("That email is already registered.")
		return
	} else if err != sql.ErrNoRows {
		logger.Error("Failed to check for existing email", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Registration failed, please try again.")
		return
	}

	hash, err := utils.HashPassword(password, config.BcryptCost)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Registration failed, please try again.")
		return
	}

	userID, err := app.DB().CreateUser(name, email, hash)
	if err != nil {
		logger.Error("Failed to create user", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Registration failed, please try again.")
		return
	}

	logger.Info("New user registered", "user_id", userID)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin serves the user login form.
func ShowLogin(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, "login.html", map[string]interface{}{
		"Title": "Login",
	})
}

// HandleLogin authenticates a user by email and password and starts a session.
func HandleLogin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleLogin")
	if err := r.ParseForm(); err != nil {
		renderError(w, r, app, http.StatusBadRequest, "Could not read the login form.")
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))

	retry := func(status int, msg string) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(status)
		}
		render(w, r, app, "login.html", map[string]interface{}{
			"Title": "Login",
			"Error": msg,
			"Email": email,
		})
	}

	ip := utils.GetIPAddress(r)
	if !app.LoginLimiter().GetLimiter(ip).Allow() {
		logger.Warn("Login rate limit exceeded", "ip", ip)
		retry(http.StatusTooManyRequests, "Too many login attempts. Please wait a moment.")
		return
	}

	user, err := app.DB().GetUserByEmail(email)
	if err == sql.ErrNoRows {
		retry(http.StatusOK, "No account with that email.")
		return
	}
	if err != nil {
		logger.Error("Failed to look up user", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Login failed, please try again.")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, r.FormValue("password")) {
		retry(http.StatusOK, "Incorrect password.")
		return
	}

	if purged, err := app.DB().PurgeExpiredSessions(); err == nil && purged > 0 {
		logger.Info("Purged expired sessions", "count", purged)
	}

	if err := beginSession(w, app, sql.NullInt64{Int64: user.ID, Valid: true}, user.IsAdmin); err != nil {
		logger.Error("Failed to create session", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Login failed, please try again.")
		return
	}

	logger.Info("User logged in", "user_id", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout destroys the current session. Idempotent: visiting while
// already logged out behaves the same.
func HandleLogout(w http.ResponseWriter, r *http.Request, app App) {
	endSession(w, r, app)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowAdminLogin serves the administrator login form.
func ShowAdminLogin(w http.ResponseWriter, r *http.Request, app App) {
	render(w, r, app, "admin-login.html", map[string]interface{}{
		"Title": "Admin Login",
	})
}

// HandleAdminLogin authenticates an administrator. The credentials must
// resolve to a user whose admin flag is set; there is no separate hardcoded
// credential pair.
func HandleAdminLogin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleAdminLogin")
	if err := r.ParseForm(); err != nil {
		renderError(w, r, app, http.StatusBadRequest, "Could not read the login form.")
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))

	retry := func(status int, msg string) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(status)
		}
		render(w, r, app, "admin-login.html", map[string]interface{}{
			"Title": "Admin Login",
			"Error": msg,
			"Email": email,
		})
	}

	ip := utils.GetIPAddress(r)
	if !app.LoginLimiter().GetLimiter(ip).Allow() {
		logger.Warn("Admin login rate limit exceeded", "ip", ip)
		retry(http.StatusTooManyRequests, "Too many login attempts. Please wait a moment.")
		return
	}

	user, err := app.DB().GetUserByEmail(email)
	if err != nil && err != sql.ErrNoRows {
		logger.Error("Failed to look up admin user", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Login failed, please try again.")
		return
	}
	// One message for unknown email, wrong password, and non-admin accounts.
	if err == sql.ErrNoRows || !user.IsAdmin || !utils.CheckPassword(user.PasswordHash, r.FormValue("password")) {
		logger.Warn("Rejected admin login", "ip", ip)
		retry(http.StatusOK, "Invalid admin credentials.")
		return
	}

	if purged, err := app.DB().PurgeExpiredSessions(); err == nil && purged > 0 {
		logger.Info("Purged expired sessions", "count", purged)
	}

	if err := beginSession(w, app, sql.NullInt64{Int64: user.ID, Valid: true}, true); err != nil {
		logger.Error("Failed to create admin session", "error", err)
		renderError(w, r, app, http.StatusInternalServerError, "Login failed, please try again.")
		return
	}

	logger.Info("Administrator logged in", "user_id", user.ID)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleAdminLogout destroys the admin session. Idempotent like HandleLogout.
func HandleAdminLogout(w http.ResponseWriter, r *http.Request, app App) {
	endSession(w, r, app)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
