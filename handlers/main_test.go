package handlers

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shnews/config"
	"shnews/database"
	"shnews/models"
	"shnews/utils"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	db           *database.Service
	logger       *slog.Logger
	uploadDir    string
	storage      models.StorageService
	loginLimiter *models.RateLimiter
	cookies      *securecookie.SecureCookie
}

func (a *MockApplication) DB() *database.Service               { return a.db }
func (a *MockApplication) Logger() *slog.Logger                { return a.logger }
func (a *MockApplication) UploadDir() string                   { return a.uploadDir }
func (a *MockApplication) Storage() models.StorageService      { return a.storage }
func (a *MockApplication) LoginLimiter() *models.RateLimiter   { return a.loginLimiter }
func (a *MockApplication) Cookies() *securecookie.SecureCookie { return a.cookies }
func (a *MockApplication) Production() bool                    { return false }

// setupTestApp creates a full application stack with a test database for
// integration testing.
func setupTestApp(t *testing.T) *MockApplication {
	if err := os.Chdir(".."); err != nil {
		t.Fatalf("Failed to change directory to project root: %v", err)
	}
	if err := LoadTemplates(); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}
	if err := os.Chdir("handlers"); err != nil {
		t.Fatalf("Failed to change back to handlers directory: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dbDir, err := os.MkdirTemp("", "shnews_test_db_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db") + "?_journal_mode=WAL&_foreign_keys=on"
	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	uploadDir, err := os.MkdirTemp("", "shnews_test_uploads_*")
	if err != nil {
		t.Fatalf("Failed to create temp upload dir: %v", err)
	}

	hashKey := sha256.Sum256([]byte("auth:test-secret"))
	blockKey := sha256.Sum256([]byte("enc:test-secret"))

	app := &MockApplication{
		db:           dbService,
		logger:       logger,
		uploadDir:    uploadDir,
		storage:      &utils.LocalStorage{UploadDir: uploadDir},
		loginLimiter: models.NewRateLimiter(time.Millisecond, 1000, 1*time.Hour, 24*time.Hour),
		cookies:      securecookie.New(hashKey[:], blockKey[:]),
	}

	t.Cleanup(func() {
		app.db.DB.Close()
		os.RemoveAll(dbDir)
		os.RemoveAll(uploadDir)
	})

	return app
}

// createTestUser inserts a user directly and returns it.
func createTestUser(t *testing.T, app *MockApplication, name, email, password string, isAdmin bool) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password, config.BcryptCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	id, err := app.db.CreateUser(name, email, hash)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	if isAdmin {
		if _, err := app.db.DB.Exec("UPDATE users SET is_admin = 1 WHERE id = ?", id); err != nil {
			t.Fatalf("Failed to promote test user: %v", err)
		}
	}
	user, err := app.db.GetUserByID(id)
	if err != nil {
		t.Fatalf("Failed to reload test user: %v", err)
	}
	return user
}

// sessionCookieFor creates a live session for the user and returns the signed
// cookie a browser would send back.
func sessionCookieFor(t *testing.T, app *MockApplication, userID int64, isAdmin bool) *http.Cookie {
	t.Helper()
	token := uuid.New().String()
	expires := time.Now().Add(24 * time.Hour)
	if err := app.db.CreateSession(token, sql.NullInt64{Int64: userID, Valid: true}, isAdmin, expires); err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	encoded, err := app.cookies.Encode(sessionCookieName, token)
	if err != nil {
		t.Fatalf("Failed to encode session cookie: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: encoded, Path: "/"}
}

// createTestNews inserts an article directly and returns its ID.
func createTestNews(t *testing.T, app *MockApplication, title string, published bool) int64 {
	t.Helper()
	id, err := app.db.CreateNews(&models.News{
		Title:     title,
		Body:      "Body of " + title,
		Category:  config.DefaultCategory,
		Author:    config.DefaultAuthor,
		Published: published,
	})
	if err != nil {
		t.Fatalf("Failed to create test news: %v", err)
	}
	return id
}

func toNullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

// testPNG renders a small valid PNG for upload tests.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}
