package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ActivationTokenTTL is how long an emailed activation code stays valid.
const ActivationTokenTTL = 15 * time.Minute

type Token struct {
	bun.BaseModel `bun:"table:tokens,alias:t"`

	ID          int        `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UserID      int        `json:"user_id"`
	User        *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token       string     `bun:",nullzero" json:"-"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
}

func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
