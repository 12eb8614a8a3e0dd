// shnews/models/models.go
package models

import (
	"database/sql"
	"time"
)

// --- Core Data Models ---

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

type News struct {
	ID        int64
	Title     string
	Body      string
	Category  string
	Author    string
	ImageURL  string
	ThumbURL  string
	Published bool
	CreatedAt time.Time
}

type Comment struct {
	ID        int64
	NewsID    int64
	UserID    int64
	UserName  string // joined from users for display
	Body      string
	Rating    sql.NullInt64
	CreatedAt time.Time
}

// Session is the server-side record a session cookie resolves to. Either
// track can populate it: a user login attaches the user ID, an admin login
// additionally sets IsAdmin from the user's admin flag.
type Session struct {
	ID        string
	UserID    sql.NullInt64
	IsAdmin   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Product is the legacy store catalogue record. Nothing writes it anymore;
// the table is kept so old databases keep loading and /debug can report it.
type Product struct {
	ID          int64
	Name        string
	Price       float64
	From        string
	Nutrients   string
	Quantity    string
	Description string
	Organic     bool
}

// Stats backs the admin panel header and the /debug endpoint.
type Stats struct {
	NewsTotal     int `json:"news_total"`
	NewsPublished int `json:"news_published"`
	Users         int `json:"users"`
	Comments      int `json:"comments"`
	Products      int `json:"products"`
}

// StorageService abstracts where uploaded images live (local disk or S3).
type StorageService interface {
	SaveFile(filename string, data []byte, contentType string) (string, error)
	DeleteFile(path string) error
}

// FormInput carries submitted form values back into a re-rendered page.
type FormInput struct {
	Name     string
	Email    string
	Title    string
	Body     string
	Category string
	Author   string
}
