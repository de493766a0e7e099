package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Feedback struct {
	bun.BaseModel `bun:"table:feedbacks,alias:f"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	BookID    int       `json:"book_id"`
	Note      float64   `json:"note"`
	Comment   string    `bun:",nullzero" json:"comment"`
	CreatedBy int       `json:"created_by"`

	// Computed per caller, not stored.
	OwnFeedback bool `bun:"-" json:"own_feedback"`
}
