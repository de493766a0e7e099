package loans

import (
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/models"
)

// state is what a lifecycle decision needs to know about a book and the loan
// records it touches. open is the caller's unapproved record for the book,
// pending the oldest record of the book waiting for the owner's approval.
type state struct {
	book     *models.Book
	callerID int
	open     *models.Loan
	pending  *models.Loan
}

func (s state) callerIsOwner() bool {
	return s.book.IsOwnedBy(s.callerID)
}

// decideBorrow allows a borrow when the book is available, the caller does
// not own it and holds no unapproved record for it.
func decideBorrow(s state) error {
	if !s.book.Available() {
		return errcodes.Forbidden("Borrowing an archived or unshareable book")
	}
	if s.callerIsOwner() {
		return errcodes.Forbidden("Borrowing your own book")
	}
	if s.open != nil {
		return errAlreadyBorrowed
	}
	return nil
}

// decideReturn allows the borrower to hand back a book they currently hold.
// A record already marked returned does not count.
func decideReturn(s state) error {
	if !s.book.Available() {
		return errcodes.Forbidden("Returning an archived or unshareable book")
	}
	if s.callerIsOwner() {
		return errcodes.Forbidden("Returning your own book")
	}
	if s.open == nil || s.open.State() != models.LoanStateBorrowed {
		return errcodes.NotFound("Borrowed book")
	}
	return nil
}

// decideApproveReturn allows the owner to close a pending return.
func decideApproveReturn(s state) error {
	if !s.callerIsOwner() {
		return errcodes.Forbidden("Approving the return of another user's book")
	}
	if s.pending == nil {
		return errcodes.NotFound("Pending return")
	}
	return nil
}

var errAlreadyBorrowed = errcodes.Conflict("The requested book is already borrowed.")
