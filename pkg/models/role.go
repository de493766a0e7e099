package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Predefined role names.
const (
	RoleUser = "user"
)

type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
}
