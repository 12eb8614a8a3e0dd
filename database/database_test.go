package database

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shnews/models"
)

func setupTestDB(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dir, err := os.MkdirTemp("", "shnews_db_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	dbPath := filepath.Join(dir, "test.db") + "?_journal_mode=WAL&_foreign_keys=on"
	svc, err := InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() {
		svc.DB.Close()
		os.RemoveAll(dir)
	})
	return svc
}

func mustCreateUser(t *testing.T, svc *Service, name, email string) int64 {
	t.Helper()
	id, err := svc.CreateUser(name, email, "$2a$10$fakehashfakehashfakehash")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return id
}

func TestInitDBAndMigrations(t *testing.T) {
	svc := setupTestDB(t)

	t.Run("Migrated Tables Exist", func(t *testing.T) {
		for _, table := range []string{"users", "news", "comments", "sessions", "products", "schema_migrations"} {
			var name string
			err := svc.DB.QueryRow(
				"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
			if err != nil {
				t.Errorf("Expected table %q to exist: %v", table, err)
			}
		}
	})

	t.Run("Thumbnail Column Added", func(t *testing.T) {
		var count int
		err := svc.DB.QueryRow(
			"SELECT COUNT(*) FROM pragma_table_info('news') WHERE name = 'thumb_url'").Scan(&count)
		if err != nil || count != 1 {
			t.Errorf("Expected news.thumb_url to exist after migration (count=%d, err=%v)", count, err)
		}
	})

	t.Run("Versions Recorded", func(t *testing.T) {
		var latest uint
		if err := svc.DB.QueryRow(
			"SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latest); err != nil {
			t.Fatalf("Failed to read migration version: %v", err)
		}
		if latest != 2 {
			t.Errorf("Expected latest migration version 2, got %d", latest)
		}
	})
}

func TestEnsureAdmin(t *testing.T) {
	svc := setupTestDB(t)

	t.Run("Creates Missing Account", func(t *testing.T) {
		if err := svc.EnsureAdmin("Admin", "admin@example.com", "hash-one"); err != nil {
			t.Fatalf("EnsureAdmin failed: %v", err)
		}
		user, err := svc.GetUserByEmail("admin@example.com")
		if err != nil {
			t.Fatalf("Expected admin account to exist: %v", err)
		}
		if !user.IsAdmin {
			t.Error("Expected the seeded account to be an admin")
		}
	})

	t.Run("Never Overwrites Password", func(t *testing.T) {
		if err := svc.EnsureAdmin("Admin", "admin@example.com", "hash-two"); err != nil {
			t.Fatalf("EnsureAdmin failed on second call: %v", err)
		}
		user, _ := svc.GetUserByEmail("admin@example.com")
		if user.PasswordHash != "hash-one" {
			t.Errorf("Expected the original hash to survive, got %q", user.PasswordHash)
		}
	})

	t.Run("Raises Flag On Existing Account", func(t *testing.T) {
		mustCreateUser(t, svc, "Promoted", "promoted@example.com")
		if err := svc.EnsureAdmin("Promoted", "promoted@example.com", "unused-hash"); err != nil {
			t.Fatalf("EnsureAdmin failed: %v", err)
		}
		user, _ := svc.GetUserByEmail("promoted@example.com")
		if !user.IsAdmin {
			t.Error("Expected the existing account to be promoted")
		}
		if user.PasswordHash == "unused-hash" {
			t.Error("Promotion must not replace the account's password")
		}
	})
}

func TestUserUniqueEmail(t *testing.T) {
	svc := setupTestDB(t)
	mustCreateUser(t, svc, "First", "dup@example.com")
	if _, err := svc.CreateUser("Second", "dup@example.com", "hash"); err == nil {
		t.Error("Expected a uniqueness violation for a duplicate email")
	}
}

func TestNewsLifecycle(t *testing.T) {
	svc := setupTestDB(t)

	id, err := svc.CreateNews(&models.News{
		Title:     "Original",
		Body:      "Body",
		Category:  "family",
		Author:    "Site Admin",
		Published: true,
	})
	if err != nil {
		t.Fatalf("CreateNews failed: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		item, err := svc.GetNews(id)
		if err != nil {
			t.Fatalf("GetNews failed: %v", err)
		}
		if item.Title != "Original" || !item.Published {
			t.Errorf("Unexpected article: %+v", item)
		}
		if item.CreatedAt.IsZero() {
			t.Error("Expected a creation timestamp")
		}
	})

	t.Run("Update", func(t *testing.T) {
		item, _ := svc.GetNews(id)
		item.Title = "Edited"
		item.Published = false
		if err := svc.UpdateNews(item); err != nil {
			t.Fatalf("UpdateNews failed: %v", err)
		}
		reloaded, _ := svc.GetNews(id)
		if reloaded.Title != "Edited" || reloaded.Published {
			t.Errorf("Update not applied: %+v", reloaded)
		}
	})

	t.Run("Delete Cascades To Comments", func(t *testing.T) {
		userID := mustCreateUser(t, svc, "Commenter", "commenter@example.com")
		if _, err := svc.CreateComment(id, userID, "So long.", sql.NullInt64{}); err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
		if err := svc.DeleteNews(id); err != nil {
			t.Fatalf("DeleteNews failed: %v", err)
		}
		if _, err := svc.GetNews(id); err != sql.ErrNoRows {
			t.Errorf("Expected sql.ErrNoRows after delete, got %v", err)
		}
		var count int
		svc.DB.QueryRow("SELECT COUNT(*) FROM comments WHERE news_id = ?", id).Scan(&count)
		if count != 0 {
			t.Errorf("Expected comments to be deleted with the article, found %d", count)
		}
	})

	t.Run("Unknown ID", func(t *testing.T) {
		if _, err := svc.GetNews(424242); err != sql.ErrNoRows {
			t.Errorf("Expected sql.ErrNoRows, got %v", err)
		}
	})
}

func TestListNews(t *testing.T) {
	svc := setupTestDB(t)
	first, _ := svc.CreateNews(&models.News{Title: "First", Body: "b", Published: true})
	svc.CreateNews(&models.News{Title: "Draft", Body: "b", Published: false})
	last, _ := svc.CreateNews(&models.News{Title: "Last", Body: "b", Published: true})

	t.Run("Published Only", func(t *testing.T) {
		items, err := svc.ListNews(true)
		if err != nil {
			t.Fatalf("ListNews failed: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 published articles, got %d", len(items))
		}
		if items[0].ID != last || items[1].ID != first {
			t.Errorf("Expected newest-first ordering, got IDs %d, %d", items[0].ID, items[1].ID)
		}
	})

	t.Run("Everything For Admin", func(t *testing.T) {
		items, err := svc.ListNews(false)
		if err != nil {
			t.Fatalf("ListNews failed: %v", err)
		}
		if len(items) != 3 {
			t.Errorf("Expected all 3 articles, got %d", len(items))
		}
	})
}

func TestComments(t *testing.T) {
	svc := setupTestDB(t)
	userID := mustCreateUser(t, svc, "Ivy", "ivy@example.com")
	newsID, _ := svc.CreateNews(&models.News{Title: "T", Body: "b", Published: true})

	if _, err := svc.CreateComment(newsID, userID, "first", sql.NullInt64{Int64: 3, Valid: true}); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if _, err := svc.CreateComment(newsID, userID, "second", sql.NullInt64{}); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	comments, err := svc.GetCommentsForNews(newsID)
	if err != nil {
		t.Fatalf("GetCommentsForNews failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("Expected 2 comments, got %d", len(comments))
	}
	if comments[0].Body != "first" || comments[1].Body != "second" {
		t.Error("Expected oldest-first ordering")
	}
	if comments[0].UserName != "Ivy" {
		t.Errorf("Expected the joined display name, got %q", comments[0].UserName)
	}
	if !comments[0].Rating.Valid || comments[0].Rating.Int64 != 3 {
		t.Errorf("Expected rating 3, got %+v", comments[0].Rating)
	}
	if comments[1].Rating.Valid {
		t.Error("Expected the second comment's rating to be NULL")
	}
}

func TestSessions(t *testing.T) {
	svc := setupTestDB(t)
	userID := mustCreateUser(t, svc, "Judy", "judy@example.com")
	uid := sql.NullInt64{Int64: userID, Valid: true}

	t.Run("Round Trip", func(t *testing.T) {
		if err := svc.CreateSession("tok-live", uid, true, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		sess, err := svc.GetSession("tok-live")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if !sess.IsAdmin || !sess.UserID.Valid || sess.UserID.Int64 != userID {
			t.Errorf("Unexpected session: %+v", sess)
		}
	})

	t.Run("Expired Token Invisible", func(t *testing.T) {
		if err := svc.CreateSession("tok-old", uid, false, time.Now().Add(-time.Minute)); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if _, err := svc.GetSession("tok-old"); err != sql.ErrNoRows {
			t.Errorf("Expected sql.ErrNoRows for an expired session, got %v", err)
		}
	})

	t.Run("Delete Is Idempotent", func(t *testing.T) {
		if err := svc.DeleteSession("tok-live"); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if err := svc.DeleteSession("tok-live"); err != nil {
			t.Errorf("Deleting an absent session must be a no-op, got %v", err)
		}
		if _, err := svc.GetSession("tok-live"); err != sql.ErrNoRows {
			t.Errorf("Expected the session to be gone, got %v", err)
		}
	})

	t.Run("Purge Removes Expired Rows", func(t *testing.T) {
		purged, err := svc.PurgeExpiredSessions()
		if err != nil {
			t.Fatalf("PurgeExpiredSessions failed: %v", err)
		}
		if purged != 1 {
			t.Errorf("Expected 1 purged session, got %d", purged)
		}
		var count int
		svc.DB.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
		if count != 0 {
			t.Errorf("Expected no sessions left, got %d", count)
		}
	})
}

func TestGetStats(t *testing.T) {
	svc := setupTestDB(t)
	userID := mustCreateUser(t, svc, "Kim", "kim@example.com")
	newsID, _ := svc.CreateNews(&models.News{Title: "T", Body: "b", Published: true})
	svc.CreateNews(&models.News{Title: "D", Body: "b", Published: false})
	svc.CreateComment(newsID, userID, "hi", sql.NullInt64{})

	stats, err := svc.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.NewsTotal != 2 || stats.NewsPublished != 1 {
		t.Errorf("Unexpected news counts: %+v", stats)
	}
	if stats.Users != 1 || stats.Comments != 1 {
		t.Errorf("Unexpected user/comment counts: %+v", stats)
	}
	if stats.Products != 0 {
		t.Errorf("Expected an empty legacy products table, got %d", stats.Products)
	}
}
