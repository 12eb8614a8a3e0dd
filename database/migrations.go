// shnews/database/migrations.go
package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Legacy store catalogue carried over from the old site. Read-only.
CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_name TEXT,
	price REAL,
	origin TEXT,
	nutrients TEXT,
	quantity TEXT,
	description TEXT,
	organic BOOLEAN DEFAULT 0
);
		`,
	},
	{
		Version: 2,
		Query: `
-- Thumbnails were introduced after launch; older rows keep an empty value
-- and fall back to the full image in templates.
ALTER TABLE news ADD COLUMN thumb_url TEXT DEFAULT '';
		`,
	},
}
