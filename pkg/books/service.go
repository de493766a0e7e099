package books

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit          *int
	Offset         *int
	OwnerID        *int
	ExcludeOwnerID *int
	// Displayable restricts the listing to books that are shareable and not
	// archived.
	Displayable bool

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

// Service persists books. It works on a *bun.DB or inside a bun.Tx so the
// lending lifecycle can read and update books in its own transaction.
type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Owner")

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	if err := svc.decorate(ctx, []*models.Book{book}); err != nil {
		return nil, err
	}

	return book, nil
}

// Lock loads a book for a read-check-write. On Postgres the row stays locked
// until the surrounding transaction ends; SQLite already serializes writers.
// Owner and rating are not loaded.
func (svc *Service) Lock(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}
	q := svc.db.
		NewSelect().
		Model(book).
		Where("b.id = ?", id)
	if svc.db.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Owner").
		Order("b.created_at DESC", "b.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.OwnerID != nil {
		q = q.Where("b.owner_id = ?", *opts.OwnerID)
	}
	if opts.ExcludeOwnerID != nil {
		q = q.Where("b.owner_id != ?", *opts.ExcludeOwnerID)
	}
	if opts.Displayable {
		q = q.Where("b.archived = ?", false).Where("b.shareable = ?", true)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	if err := svc.decorate(ctx, books); err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	// Update updated_at.
	now := time.Now()
	book.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Book")
	}

	return nil
}

// ToggleShareable flips the shareable flag of a book owned by callerID. Run it
// inside a transaction to keep the check and the write together.
func (svc *Service) ToggleShareable(ctx context.Context, bookID, callerID int) (int, error) {
	return svc.toggle(ctx, bookID, callerID, "shareable", func(b *models.Book) {
		b.Shareable = !b.Shareable
	})
}

// ToggleArchived flips the archived flag of a book owned by callerID.
func (svc *Service) ToggleArchived(ctx context.Context, bookID, callerID int) (int, error) {
	return svc.toggle(ctx, bookID, callerID, "archived", func(b *models.Book) {
		b.Archived = !b.Archived
	})
}

func (svc *Service) toggle(ctx context.Context, bookID, callerID int, column string, flip func(*models.Book)) (int, error) {
	book, err := svc.Lock(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if !book.IsOwnedBy(callerID) {
		return 0, errcodes.Forbidden("Changing the " + column + " status of another user's book")
	}

	flip(book)
	if err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{column}}); err != nil {
		return 0, err
	}
	return book.ID, nil
}

type bookRating struct {
	BookID  int     `bun:"book_id"`
	Average float64 `bun:"average"`
}

// AverageRatings returns the mean feedback note per book, rounded to one
// decimal. Books without feedback are absent from the map.
func (svc *Service) AverageRatings(ctx context.Context, bookIDs []int) (map[int]float64, error) {
	rates := map[int]float64{}
	if len(bookIDs) == 0 {
		return rates, nil
	}

	var rows []bookRating
	err := svc.db.
		NewSelect().
		Model((*models.Feedback)(nil)).
		ColumnExpr("f.book_id AS book_id").
		ColumnExpr("AVG(f.note) AS average").
		Where("f.book_id IN (?)", bun.In(bookIDs)).
		Group("f.book_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, r := range rows {
		rates[r.BookID] = math.Round(r.Average*10) / 10
	}
	return rates, nil
}

// decorate fills the computed owner name and rating.
func (svc *Service) decorate(ctx context.Context, books []*models.Book) error {
	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
		if b.Owner != nil {
			b.OwnerName = b.Owner.FullName()
		}
	}

	rates, err := svc.AverageRatings(ctx, ids)
	if err != nil {
		return err
	}
	for _, b := range books {
		b.Rate = rates[b.ID]
	}
	return nil
}
