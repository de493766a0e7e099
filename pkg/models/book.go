package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	OwnerID       int       `json:"owner_id"`
	Owner         *User     `bun:"rel:belongs-to,join:owner_id=id" json:"-"`
	Title         string    `bun:",nullzero" json:"title"`
	AuthorName    string    `bun:",nullzero" json:"author_name"`
	ISBN          string    `bun:"isbn,nullzero" json:"isbn"`
	Synopsis      string    `json:"synopsis"`
	CoverFilename *string   `json:"cover_filename"`
	Archived      bool      `json:"archived"`
	Shareable     bool      `json:"shareable"`

	// Computed, not stored.
	OwnerName string  `bun:"-" json:"owner_name,omitempty"`
	Rate      float64 `bun:"-" json:"rate"`
}

// Available reports whether the book can take part in lending and feedback.
func (b *Book) Available() bool {
	return !b.Archived && b.Shareable
}

// IsOwnedBy reports whether userID owns the book.
func (b *Book) IsOwnedBy(userID int) bool {
	return b.OwnerID == userID
}
