package models

import (
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

type LoanState string

const (
	LoanStateNone          LoanState = "NONE"
	LoanStateBorrowed      LoanState = "BORROWED"
	LoanStateReturnPending LoanState = "RETURN_PENDING"
	LoanStateClosed        LoanState = "CLOSED"
)

// Loan records one borrowing of a book. Returned is set by the borrower and
// ReturnApproved by the book's owner, in that order.
type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID             int       `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	BookID         int       `json:"book_id"`
	Book           *Book     `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	UserID         int       `json:"user_id"`
	Returned       bool      `json:"returned"`
	ReturnApproved bool      `json:"return_approved"`
}

func (l *Loan) State() LoanState {
	switch {
	case l == nil:
		return LoanStateNone
	case l.ReturnApproved:
		return LoanStateClosed
	case l.Returned:
		return LoanStateReturnPending
	default:
		return LoanStateBorrowed
	}
}

func (l *Loan) MarshalJSON() ([]byte, error) {
	type loan Loan
	return json.Marshal(struct {
		*loan
		State LoanState `json:"state"`
	}{(*loan)(l), l.State()})
}
