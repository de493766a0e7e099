package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	FirstName     string    `bun:",nullzero" json:"first_name"`
	LastName      string    `bun:",nullzero" json:"last_name"`
	Email         string    `bun:",nullzero" json:"email"`
	PasswordHash  string    `json:"-"` // Never expose password hash
	RoleID        int       `json:"role_id"`
	Enabled       bool      `json:"enabled"`
	AccountLocked bool      `json:"account_locked"`

	// Relations
	Role *Role `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
