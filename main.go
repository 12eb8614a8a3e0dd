// shnews/main.go
package main

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"shnews/config"
	"shnews/database"
	"shnews/handlers"
	"shnews/models"
	"shnews/utils"

	"github.com/gorilla/securecookie"
)

type Application struct {
	db           *database.Service
	logger       *slog.Logger
	uploadDir    string
	storage      models.StorageService
	loginLimiter *models.RateLimiter
	cookies      *securecookie.SecureCookie
	production   bool
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.Service                { return a.db }
func (a *Application) Logger() *slog.Logger                 { return a.logger }
func (a *Application) UploadDir() string                    { return a.uploadDir }
func (a *Application) Storage() models.StorageService       { return a.storage }
func (a *Application) LoginLimiter() *models.RateLimiter    { return a.loginLimiter }
func (a *Application) Cookies() *securecookie.SecureCookie  { return a.cookies }
func (a *Application) Production() bool                     { return a.production }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- External Configuration ---
	port := utils.GetEnv("SHNEWS_PORT", "8000")
	production := utils.GetEnv("SHNEWS_ENV", "development") == "production"

	dbPath := os.Getenv("SHNEWS_DB_PATH")
	if dbPath == "" {
		logger.Error("FATAL: SHNEWS_DB_PATH is not set")
		os.Exit(1)
	}

	sessionSecret := os.Getenv("SHNEWS_SESSION_SECRET")
	if sessionSecret == "" {
		if production {
			logger.Error("FATAL: SHNEWS_SESSION_SECRET is required in production")
			os.Exit(1)
		}
		logger.Warn("SHNEWS_SESSION_SECRET not set, using an insecure development secret")
		sessionSecret = "dev-insecure-secret-change-me"
	}
	hashKey := sha256.Sum256([]byte("auth:" + sessionSecret))
	blockKey := sha256.Sum256([]byte("enc:" + sessionSecret))

	rateLimitEvery, err := time.ParseDuration(utils.GetEnv("SHNEWS_RATE_EVERY", config.DefaultRateLimitEvery))
	if err != nil {
		logger.Warn("Invalid SHNEWS_RATE_EVERY duration, using default", "value", utils.GetEnv("SHNEWS_RATE_EVERY", ""), "default", config.DefaultRateLimitEvery)
		rateLimitEvery, _ = time.ParseDuration(config.DefaultRateLimitEvery)
	}
	rateLimitBurst, err := strconv.Atoi(utils.GetEnv("SHNEWS_RATE_BURST", strconv.Itoa(config.DefaultRateLimitBurst)))
	if err != nil {
		logger.Warn("Invalid SHNEWS_RATE_BURST integer, using default", "value", utils.GetEnv("SHNEWS_RATE_BURST", ""), "default", config.DefaultRateLimitBurst)
		rateLimitBurst = config.DefaultRateLimitBurst
	}
	rateLimitPrune, _ := time.ParseDuration(config.DefaultRateLimitPrune)
	rateLimitExpire, _ := time.ParseDuration(config.DefaultRateLimitExpire)

	db, err := database.InitDB(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.DB.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	// --- Admin Bootstrap ---
	adminEmail := os.Getenv("SHNEWS_ADMIN_EMAIL")
	adminPassword := os.Getenv("SHNEWS_ADMIN_PASSWORD")
	if adminEmail != "" && adminPassword != "" {
		hash, err := utils.HashPassword(adminPassword, config.BcryptCost)
		if err != nil {
			logger.Error("Failed to hash admin bootstrap password", "error", err)
			os.Exit(1)
		}
		if err := db.EnsureAdmin(utils.GetEnv("SHNEWS_ADMIN_NAME", "Administrator"), adminEmail, hash); err != nil {
			logger.Error("Failed to bootstrap admin account", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("No admin bootstrap configured; set SHNEWS_ADMIN_EMAIL and SHNEWS_ADMIN_PASSWORD to seed one")
	}

	if err := handlers.LoadTemplates(); err != nil {
		logger.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	uploadDir := utils.GetEnv("SHNEWS_UPLOAD_DIR", "./uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		logger.Error("FATAL: Could not create uploads directory", "path", uploadDir, "error", err)
		os.Exit(1)
	}

	// --- Storage Service Init ---
	var storageService models.StorageService
	if utils.GetEnv("SHNEWS_S3_ENABLED", "false") == "true" {
		endpoint := utils.GetEnv("SHNEWS_S3_ENDPOINT", "")
		accessKey := utils.GetEnv("SHNEWS_S3_ACCESS_KEY", "")
		secretKey := utils.GetEnv("SHNEWS_S3_SECRET_KEY", "")
		bucket := utils.GetEnv("SHNEWS_S3_BUCKET", "")
		region := utils.GetEnv("SHNEWS_S3_REGION", "us-east-1")
		publicURL := utils.GetEnv("SHNEWS_S3_PUBLIC_URL", "")
		useSSL := utils.GetEnv("SHNEWS_S3_USE_SSL", "true") == "true"

		storageService, err = utils.NewS3Storage(endpoint, accessKey, secretKey, bucket, region, publicURL, useSSL)
		if err != nil {
			logger.Error("Failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		logger.Info("S3 Storage initialized", "endpoint", endpoint, "bucket", bucket)
	} else {
		storageService = &utils.LocalStorage{UploadDir: uploadDir}
		logger.Info("Local Storage initialized", "dir", uploadDir)
	}

	app := &Application{
		db:           db,
		logger:       logger,
		uploadDir:    uploadDir,
		storage:      storageService,
		loginLimiter: models.NewRateLimiter(rateLimitEvery, rateLimitBurst, rateLimitPrune, rateLimitExpire),
		cookies:      securecookie.New(hashKey[:], blockKey[:]),
		production:   production,
	}

	mux := handlers.SetupRouter(app)

	// --- Graceful Shutdown ---
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("shnews server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+port,
		"production", production,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
