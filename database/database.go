// shnews/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"shnews/models"
	"shnews/utils"

	_ "github.com/mattn/go-sqlite3"
)

// Service is the central struct for all database operations.
type Service struct {
	DB     *sql.DB
	logger *slog.Logger
}

// InitDB connects to the database and runs migrations.
func InitDB(dataSourceName string, logger *slog.Logger) (*Service, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Info("Database initialized")

	return &Service{DB: db, logger: logger}, nil
}

// Ping reports database connectivity for the health endpoint.
func (s *Service) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	for _, m := range allMigrations {
		if m.Version > latestVersion {
			logger.Info("Applying migration", "version", m.Version)
			tx, err := db.Begin()
			if err != nil {
				return err
			}

			if _, err := tx.Exec(m.Query); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, utils.GetSQLTime()); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration record", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
			}
		}
	}
	return nil
}

// --- Users ---

// CreateUser inserts a new user account and returns its ID.
func (s *Service) CreateUser(name, email, passwordHash string) (int64, error) {
	res, err := s.DB.Exec(
		"INSERT INTO users (name, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, 0, ?)",
		name, email, passwordHash, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return res.LastInsertId()
}

// GetUserByEmail fetches a user by email. Returns sql.ErrNoRows when absent.
func (s *Service) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	err := s.DB.QueryRow(
		"SELECT id, name, email, password_hash, is_admin, created_at FROM users WHERE email = ?", email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID fetches a user by ID. Returns sql.ErrNoRows when absent.
func (s *Service) GetUserByID(id int64) (*models.User, error) {
	var u models.User
	err := s.DB.QueryRow(
		"SELECT id, name, email, password_hash, is_admin, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureAdmin makes sure a default administrator account exists. A missing
// account is created with the given hash; an existing account only gets its
// admin flag raised, its password is left alone.
func (s *Service) EnsureAdmin(name, email, passwordHash string) error {
	var id int64
	var isAdmin bool
	err := s.DB.QueryRow("SELECT id, is_admin FROM users WHERE email = ?", email).Scan(&id, &isAdmin)
	if err == sql.ErrNoRows {
		_, err := s.DB.Exec(
			"INSERT INTO users (name, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, 1, ?)",
			name, email, passwordHash, utils.GetSQLTime())
		if err != nil {
			return fmt.Errorf("failed to seed admin account: %w", err)
		}
		s.logger.Info("Seeded default admin account", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}
	if !isAdmin {
		if _, err := s.DB.Exec("UPDATE users SET is_admin = 1 WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to raise admin flag: %w", err)
		}
		s.logger.Info("Raised admin flag on existing account", "email", email)
	}
	return nil
}

// --- News ---

// CreateNews persists a new article and returns its ID.
func (s *Service) CreateNews(n *models.News) (int64, error) {
	res, err := s.DB.Exec(`
		INSERT INTO news (title, body, category, author, image_url, thumb_url, published, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Title, n.Body, n.Category, n.Author, n.ImageURL, n.ThumbURL, n.Published, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to insert news: %w", err)
	}
	return res.LastInsertId()
}

// GetNews fetches a single article. Returns sql.ErrNoRows when absent.
func (s *Service) GetNews(id int64) (*models.News, error) {
	var n models.News
	err := s.DB.QueryRow(`
		SELECT id, title, body, category, author, image_url, thumb_url, published, created_at
		FROM news WHERE id = ?`, id).
		Scan(&n.ID, &n.Title, &n.Body, &n.Category, &n.Author, &n.ImageURL, &n.ThumbURL, &n.Published, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNews returns articles newest-first. With publishedOnly set, drafts are
// filtered out; the admin panel lists everything.
func (s *Service) ListNews(publishedOnly bool) ([]models.News, error) {
	query := `
		SELECT id, title, body, category, author, image_url, thumb_url, published, created_at
		FROM news`
	if publishedOnly {
		query += " WHERE published = 1"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in ListNews", "error", err)
		}
	}()

	var items []models.News
	for rows.Next() {
		var n models.News
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Category, &n.Author, &n.ImageURL, &n.ThumbURL, &n.Published, &n.CreatedAt); err != nil {
			s.logger.Error("Failed to scan news row", "error", err)
			continue
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateNews overwrites an article's editable fields. Last writer wins.
func (s *Service) UpdateNews(n *models.News) error {
	_, err := s.DB.Exec(`
		UPDATE news SET title = ?, body = ?, category = ?, author = ?, image_url = ?, thumb_url = ?, published = ?
		WHERE id = ?`,
		n.Title, n.Body, n.Category, n.Author, n.ImageURL, n.ThumbURL, n.Published, n.ID)
	if err != nil {
		return fmt.Errorf("failed to update news %d: %w", n.ID, err)
	}
	return nil
}

// DeleteNews removes an article and its comments.
func (s *Service) DeleteNews(id int64) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			s.logger.Error("Failed to rollback transaction in DeleteNews", "error", rerr)
		}
	}()

	if _, err := tx.Exec("DELETE FROM comments WHERE news_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete comments for news %d: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM news WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete news %d: %w", id, err)
	}
	return tx.Commit()
}

// --- Comments ---

// CreateComment persists a comment against an article.
func (s *Service) CreateComment(newsID, userID int64, body string, rating sql.NullInt64) (int64, error) {
	res, err := s.DB.Exec(
		"INSERT INTO comments (news_id, user_id, body, rating, created_at) VALUES (?, ?, ?, ?, ?)",
		newsID, userID, body, rating, utils.GetSQLTime())
	if err != nil {
		return 0, fmt.Errorf("failed to insert comment: %w", err)
	}
	return res.LastInsertId()
}

// GetCommentsForNews returns an article's comments oldest-first, with the
// commenter's display name joined in.
func (s *Service) GetCommentsForNews(newsID int64) ([]models.Comment, error) {
	rows, err := s.DB.Query(`
		SELECT c.id, c.news_id, c.user_id, u.name, c.body, c.rating, c.created_at
		FROM comments c JOIN users u ON c.user_id = u.id
		WHERE c.news_id = ?
		ORDER BY c.created_at ASC, c.id ASC`, newsID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows in GetCommentsForNews", "error", err)
		}
	}()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.NewsID, &c.UserID, &c.UserName, &c.Body, &c.Rating, &c.CreatedAt); err != nil {
			s.logger.Error("Failed to scan comment row", "error", err)
			continue
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

// --- Sessions ---

// CreateSession inserts a new session record.
func (s *Service) CreateSession(id string, userID sql.NullInt64, isAdmin bool, expiresAt time.Time) error {
	_, err := s.DB.Exec(
		"INSERT INTO sessions (id, user_id, is_admin, created_at, expires_at) VALUES (?, ?, ?, ?, ?)",
		id, userID, isAdmin, utils.GetSQLTime(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession resolves a token to its live session record. Expired or unknown
// tokens return sql.ErrNoRows.
func (s *Service) GetSession(id string) (*models.Session, error) {
	var sess models.Session
	err := s.DB.QueryRow(
		"SELECT id, user_id, is_admin, created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?",
		id, utils.GetSQLTime()).
		Scan(&sess.ID, &sess.UserID, &sess.IsAdmin, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession destroys a session record. Deleting an absent session is a
// no-op, which keeps logout idempotent.
func (s *Service) DeleteSession(id string) error {
	_, err := s.DB.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// PurgeExpiredSessions drops rows past their expiry.
func (s *Service) PurgeExpiredSessions() (int64, error) {
	res, err := s.DB.Exec("DELETE FROM sessions WHERE expires_at <= ?", utils.GetSQLTime())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Stats ---

// GetStats collects the counts shown on the admin panel and /debug.
func (s *Service) GetStats() (*models.Stats, error) {
	var st models.Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM news", &st.NewsTotal},
		{"SELECT COUNT(*) FROM news WHERE published = 1", &st.NewsPublished},
		{"SELECT COUNT(*) FROM users", &st.Users},
		{"SELECT COUNT(*) FROM comments", &st.Comments},
		{"SELECT COUNT(*) FROM products", &st.Products},
	}
	for _, q := range queries {
		if err := s.DB.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats query failed: %w", err)
		}
	}
	return &st, nil
}
