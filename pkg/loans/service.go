package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/booknetwork/booknet/pkg/books"
	"github.com/booknetwork/booknet/pkg/database"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Service drives the lending lifecycle of a book between its owner and its
// borrowers. Every mutation reads, checks and writes inside one transaction.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Borrow opens a loan of bookID for callerID and returns the loan id.
func (s *Service) Borrow(ctx context.Context, bookID, callerID int) (int, error) {
	var loanID int
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book, err := books.NewService(tx).Lock(ctx, bookID)
		if err != nil {
			return err
		}
		open, err := findOpen(ctx, tx, bookID, callerID)
		if err != nil {
			return err
		}

		if err := decideBorrow(state{book: book, callerID: callerID, open: open}); err != nil {
			return err
		}

		now := time.Now()
		loan := &models.Loan{
			CreatedAt: now,
			UpdatedAt: now,
			BookID:    bookID,
			UserID:    callerID,
		}
		if err := insertLoan(ctx, tx, loan); err != nil {
			return err
		}
		loanID = loan.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info("book borrowed", logger.Data{"book_id": bookID, "user_id": callerID, "loan_id": loanID})
	return loanID, nil
}

// Return marks the caller's current loan of bookID as returned. The loan
// stays open until the owner approves the return.
func (s *Service) Return(ctx context.Context, bookID, callerID int) (int, error) {
	var loanID int
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book, err := books.NewService(tx).Lock(ctx, bookID)
		if err != nil {
			return err
		}
		open, err := findOpen(ctx, tx, bookID, callerID)
		if err != nil {
			return err
		}

		if err := decideReturn(state{book: book, callerID: callerID, open: open}); err != nil {
			return err
		}

		open.Returned = true
		if err := updateLoan(ctx, tx, open, "returned"); err != nil {
			return err
		}
		loanID = open.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info("book returned", logger.Data{"book_id": bookID, "user_id": callerID, "loan_id": loanID})
	return loanID, nil
}

// ApproveReturn closes the oldest pending return of bookID. Only the book's
// owner may call it.
func (s *Service) ApproveReturn(ctx context.Context, bookID, callerID int) (int, error) {
	var loanID int
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book, err := books.NewService(tx).Lock(ctx, bookID)
		if err != nil {
			return err
		}
		pending, err := findPending(ctx, tx, bookID)
		if err != nil {
			return err
		}

		if err := decideApproveReturn(state{book: book, callerID: callerID, pending: pending}); err != nil {
			return err
		}

		pending.ReturnApproved = true
		if err := updateLoan(ctx, tx, pending, "return_approved"); err != nil {
			return err
		}
		loanID = pending.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info("book return approved", logger.Data{"book_id": bookID, "owner_id": callerID, "loan_id": loanID})
	return loanID, nil
}

func (s *Service) ToggleShareable(ctx context.Context, bookID, callerID int) (int, error) {
	var id int
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		id, err = books.NewService(tx).ToggleShareable(ctx, bookID, callerID)
		return err
	})
	return id, err
}

func (s *Service) ToggleArchived(ctx context.Context, bookID, callerID int) (int, error) {
	var id int
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		id, err = books.NewService(tx).ToggleArchived(ctx, bookID, callerID)
		return err
	})
	return id, err
}

// ListBorrowed pages through every loan the caller took out, newest first,
// whatever its state.
func (s *Service) ListBorrowed(ctx context.Context, callerID int, q pagination.Query) (*pagination.Page[*models.Loan], error) {
	return s.list(ctx, q, func(sq *bun.SelectQuery) *bun.SelectQuery {
		return sq.Where("l.user_id = ?", callerID)
	})
}

// ListReturned pages through every loan of the caller's books, newest first,
// whatever its state.
func (s *Service) ListReturned(ctx context.Context, callerID int, q pagination.Query) (*pagination.Page[*models.Loan], error) {
	return s.list(ctx, q, func(sq *bun.SelectQuery) *bun.SelectQuery {
		return sq.Where("book.owner_id = ?", callerID)
	})
}

func (s *Service) list(ctx context.Context, q pagination.Query, filter func(*bun.SelectQuery) *bun.SelectQuery) (*pagination.Page[*models.Loan], error) {
	loans := []*models.Loan{}

	total, err := s.db.
		NewSelect().
		Model(&loans).
		Relation("Book").
		Apply(filter).
		Order("l.created_at DESC", "l.id DESC").
		Limit(q.Limit()).
		Offset(q.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	ids := make([]int, 0, len(loans))
	for _, l := range loans {
		ids = append(ids, l.BookID)
	}
	rates, err := books.NewService(s.db).AverageRatings(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range loans {
		if l.Book != nil {
			l.Book.Rate = rates[l.BookID]
		}
	}

	return pagination.New(loans, q, total), nil
}

// findOpen returns the caller's unapproved record for the book, or nil.
func findOpen(ctx context.Context, idb bun.IDB, bookID, userID int) (*models.Loan, error) {
	loan := &models.Loan{}
	err := idb.
		NewSelect().
		Model(loan).
		Where("l.book_id = ?", bookID).
		Where("l.user_id = ?", userID).
		Where("l.return_approved = ?", false).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return loan, nil
}

// findPending returns the oldest record of the book awaiting approval, or nil.
func findPending(ctx context.Context, idb bun.IDB, bookID int) (*models.Loan, error) {
	loan := &models.Loan{}
	err := idb.
		NewSelect().
		Model(loan).
		Where("l.book_id = ?", bookID).
		Where("l.returned = ?", true).
		Where("l.return_approved = ?", false).
		Order("l.created_at ASC", "l.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return loan, nil
}

// insertLoan stores a new record. A concurrent borrow that slipped past the
// open-record check trips the partial unique index and reports a conflict.
func insertLoan(ctx context.Context, idb bun.IDB, loan *models.Loan) error {
	_, err := idb.
		NewInsert().
		Model(loan).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errAlreadyBorrowed
	}
	return errors.WithStack(err)
}

func updateLoan(ctx context.Context, idb bun.IDB, loan *models.Loan, column string) error {
	loan.UpdatedAt = time.Now()
	_, err := idb.
		NewUpdate().
		Model(loan).
		Column(column, "updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
