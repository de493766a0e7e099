package feedback

import (
	"context"
	"database/sql"
	"time"

	"github.com/booknetwork/booknet/pkg/books"
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type SubmitOptions struct {
	BookID   int
	CallerID int
	Note     float64
	Comment  string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Submit records the caller's feedback on a book they can borrow and returns
// its id. Borrowing the book first is not required.
func (s *Service) Submit(ctx context.Context, opts SubmitOptions) (int, error) {
	fb := &models.Feedback{
		BookID:    opts.BookID,
		Note:      opts.Note,
		Comment:   opts.Comment,
		CreatedBy: opts.CallerID,
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book, err := books.NewService(tx).Lock(ctx, opts.BookID)
		if err != nil {
			return err
		}
		if !book.Available() {
			return errcodes.Forbidden("Giving feedback on an archived or unshareable book")
		}
		if book.IsOwnedBy(opts.CallerID) {
			return errcodes.Forbidden("Giving feedback on your own book")
		}

		now := time.Now()
		fb.CreatedAt = now
		fb.UpdatedAt = now
		_, err = tx.
			NewInsert().
			Model(fb).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info("feedback submitted", logger.Data{"feedback_id": fb.ID, "book_id": fb.BookID, "user_id": opts.CallerID})
	return fb.ID, nil
}

// ListByBook pages through a book's feedback, newest first, flagging the
// entries written by callerID.
func (s *Service) ListByBook(ctx context.Context, bookID, callerID int, q pagination.Query) (*pagination.Page[*models.Feedback], error) {
	feedbacks := []*models.Feedback{}

	total, err := s.db.
		NewSelect().
		Model(&feedbacks).
		Where("f.book_id = ?", bookID).
		Order("f.created_at DESC", "f.id DESC").
		Limit(q.Limit()).
		Offset(q.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, fb := range feedbacks {
		fb.OwnFeedback = fb.CreatedBy == callerID
	}

	return pagination.New(feedbacks, q, total), nil
}
