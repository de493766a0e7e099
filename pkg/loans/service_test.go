package loans

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/booknetwork/booknet/pkg/books"
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/migrations"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/pagination"
	"github.com/booknetwork/booknet/pkg/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

type fixture struct {
	ctx   context.Context
	db    *bun.DB
	svc   *Service
	owner *models.User
	alice *models.User
	bob   *models.User
	book  *models.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	f := &fixture{ctx: ctx, db: db, svc: NewService(db)}
	f.owner = createUser(ctx, t, db, "olive")
	f.alice = createUser(ctx, t, db, "alice")
	f.bob = createUser(ctx, t, db, "bob")

	f.book = &models.Book{OwnerID: f.owner.ID, Title: "Dune", AuthorName: "Frank Herbert", ISBN: "9780441013593", Shareable: true}
	require.NoError(t, books.NewService(db).CreateBook(ctx, f.book))
	return f
}

func createUser(ctx context.Context, t *testing.T, db bun.IDB, first string) *models.User {
	t.Helper()
	user, err := users.NewService(db).Create(ctx, users.CreateUserOptions{
		FirstName: first,
		LastName:  "Tester",
		Email:     fmt.Sprintf("%s@example.com", first),
		Password:  "password123",
		Enabled:   true,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) loan(t *testing.T, id int) *models.Loan {
	t.Helper()
	loan := &models.Loan{}
	require.NoError(t, f.db.NewSelect().Model(loan).Where("l.id = ?", id).Scan(f.ctx))
	return loan
}

func TestBorrow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	id, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)

	loan := f.loan(t, id)
	assert.Equal(t, f.book.ID, loan.BookID)
	assert.Equal(t, f.alice.ID, loan.UserID)
	assert.Equal(t, models.LoanStateBorrowed, loan.State())
}

func TestBorrow_UnknownBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Borrow(f.ctx, 999, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestBorrow_OwnerForbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Borrow(f.ctx, f.book.ID, f.owner.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Borrowing your own book"))
}

func TestBorrow_Unavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.ToggleArchived(f.ctx, f.book.ID, f.owner.ID)
	require.NoError(t, err)

	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Borrowing an archived or unshareable book"))

	_, err = f.svc.ToggleArchived(f.ctx, f.book.ID, f.owner.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleShareable(f.ctx, f.book.ID, f.owner.ID)
	require.NoError(t, err)

	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Borrowing an archived or unshareable book"))
}

func TestBorrow_Conflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errAlreadyBorrowed)

	// A pending return still blocks a new borrow.
	_, err = f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errAlreadyBorrowed)

	// Other readers are not affected.
	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.bob.ID)
	assert.NoError(t, err)
}

func TestInsertLoan_UniqueIndexConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.NoError(t, insertLoan(f.ctx, f.db, &models.Loan{BookID: f.book.ID, UserID: f.alice.ID}))
	err := insertLoan(f.ctx, f.db, &models.Loan{BookID: f.book.ID, UserID: f.alice.ID})
	assert.ErrorIs(t, err, errAlreadyBorrowed)
}

func TestReturnAndApprove(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	id, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)

	returnedID, err := f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, id, returnedID)
	assert.Equal(t, models.LoanStateReturnPending, f.loan(t, id).State())

	_, err = f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Borrowed book"))

	approvedID, err := f.svc.ApproveReturn(f.ctx, f.book.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, id, approvedID)

	loan := f.loan(t, id)
	assert.Equal(t, models.LoanStateClosed, loan.State())
	assert.True(t, loan.Returned)
	assert.True(t, loan.ReturnApproved)

	_, err = f.svc.ApproveReturn(f.ctx, f.book.ID, f.owner.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Pending return"))
}

func TestReturn_Guards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Borrowed book"))

	_, err = f.svc.Return(f.ctx, f.book.ID, f.owner.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Returning your own book"))

	_, err = f.svc.Return(f.ctx, 999, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestApproveReturn_OnlyOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	id, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)

	// The borrower can't approve their own return.
	_, err = f.svc.ApproveReturn(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Approving the return of another user's book"))
	assert.Equal(t, models.LoanStateReturnPending, f.loan(t, id).State())

	_, err = f.svc.ApproveReturn(f.ctx, 999, f.owner.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestApproveReturn_RequiresPendingReturn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	id, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveReturn(f.ctx, f.book.ID, f.owner.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Pending return"))
	assert.Equal(t, models.LoanStateBorrowed, f.loan(t, id).State())
}

func TestToggleArchived_NonOwnerForbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.ToggleArchived(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Changing the archived status of another user's book"))

	_, err = f.svc.ToggleShareable(f.ctx, f.book.ID, f.alice.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Changing the shareable status of another user's book"))
}

// Owner O shares a book. A borrows and returns it, O approves, and then A
// and B can each borrow it again.
func TestLifecycleScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.owner.ID)
	assert.ErrorIs(t, err, errcodes.Forbidden("Borrowing your own book"))

	_, err = f.svc.ApproveReturn(f.ctx, f.book.ID, f.owner.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("Pending return"))

	_, err = f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.ApproveReturn(f.ctx, f.book.ID, f.owner.ID)
	require.NoError(t, err)

	second, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.bob.ID)
	require.NoError(t, err)

	assert.Equal(t, models.LoanStateClosed, f.loan(t, first).State())
	assert.Equal(t, models.LoanStateBorrowed, f.loan(t, second).State())
}

func TestApproveReturn_OldestPendingFirst(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	aliceLoan, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	bobLoan, err := f.svc.Borrow(f.ctx, f.book.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.svc.Return(f.ctx, f.book.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)

	approved, err := f.svc.ApproveReturn(f.ctx, f.book.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceLoan, approved)
	assert.Equal(t, models.LoanStateReturnPending, f.loan(t, bobLoan).State())
}

func TestListBorrowedAndReturned(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Return(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.ApproveReturn(f.ctx, f.book.ID, f.owner.ID)
	require.NoError(t, err)
	second, err := f.svc.Borrow(f.ctx, f.book.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Borrow(f.ctx, f.book.ID, f.bob.ID)
	require.NoError(t, err)

	page, err := f.svc.ListBorrowed(f.ctx, f.alice.ID, pagination.Query{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalElements)
	require.Len(t, page.Content, 2)
	// Newest first, history included.
	assert.Equal(t, second, page.Content[0].ID)
	assert.Equal(t, models.LoanStateBorrowed, page.Content[0].State())
	assert.Equal(t, first, page.Content[1].ID)
	assert.Equal(t, models.LoanStateClosed, page.Content[1].State())
	require.NotNil(t, page.Content[0].Book)
	assert.Equal(t, "Dune", page.Content[0].Book.Title)

	page, err = f.svc.ListReturned(f.ctx, f.owner.ID, pagination.Query{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Content, 2)
	assert.False(t, page.Last)

	page, err = f.svc.ListReturned(f.ctx, f.alice.ID, pagination.Query{Size: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.NotNil(t, page.Content)
}
