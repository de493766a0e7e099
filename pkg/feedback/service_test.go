package feedback

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

func createBook(ctx context.Context, t *testing.T, db bun.IDB, ownerID int, shareable bool) *models.Book {
	t.Helper()
	book := &models.Book{OwnerID: ownerID, Title: "Dune", AuthorName: "Frank Herbert", ISBN: "9780441013593", Shareable: shareable}
	require.NoError(t, books.NewService(db).CreateBook(ctx, book))
	return book
}

func TestSubmit(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	owner := createUser(ctx, t, db, "olive")
	reader := createUser(ctx, t, db, "ruth")
	book := createBook(ctx, t, db, owner.ID, true)

	id, err := svc.Submit(ctx, SubmitOptions{BookID: book.ID, CallerID: reader.ID, Note: 4.5, Comment: "Great"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	// Feedback can be given more than once and needs no loan.
	_, err = svc.Submit(ctx, SubmitOptions{BookID: book.ID, CallerID: reader.ID, Note: 3, Comment: "Reread it"})
	require.NoError(t, err)

	rates, err := books.NewService(db).AverageRatings(ctx, []int{book.ID})
	require.NoError(t, err)
	assert.InDelta(t, 3.8, rates[book.ID], 0.0001)
}

func TestSubmit_Guards(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	owner := createUser(ctx, t, db, "olive")
	reader := createUser(ctx, t, db, "ruth")
	shared := createBook(ctx, t, db, owner.ID, true)
	private := createBook(ctx, t, db, owner.ID, false)

	_, err := svc.Submit(ctx, SubmitOptions{BookID: 999, CallerID: reader.ID, Note: 1, Comment: "?"})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))

	_, err = svc.Submit(ctx, SubmitOptions{BookID: private.ID, CallerID: reader.ID, Note: 1, Comment: "?"})
	assert.ErrorIs(t, err, errcodes.Forbidden("Giving feedback on an archived or unshareable book"))

	_, err = svc.Submit(ctx, SubmitOptions{BookID: shared.ID, CallerID: owner.ID, Note: 5, Comment: "Mine is best"})
	assert.ErrorIs(t, err, errcodes.Forbidden("Giving feedback on your own book"))

	count, err := db.NewSelect().Model((*models.Feedback)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListByBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	owner := createUser(ctx, t, db, "olive")
	ruth := createUser(ctx, t, db, "ruth")
	sam := createUser(ctx, t, db, "sam")
	book := createBook(ctx, t, db, owner.ID, true)
	other := createBook(ctx, t, db, owner.ID, true)

	_, err := svc.Submit(ctx, SubmitOptions{BookID: book.ID, CallerID: ruth.ID, Note: 4, Comment: "first"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SubmitOptions{BookID: book.ID, CallerID: sam.ID, Note: 2, Comment: "second"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SubmitOptions{BookID: other.ID, CallerID: sam.ID, Note: 2, Comment: "elsewhere"})
	require.NoError(t, err)

	page, err := svc.ListByBook(ctx, book.ID, ruth.ID, pagination.Query{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalElements)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "second", page.Content[0].Comment)
	assert.False(t, page.Content[0].OwnFeedback)
	assert.Equal(t, "first", page.Content[1].Comment)
	assert.True(t, page.Content[1].OwnFeedback)

	page, err = svc.ListByBook(ctx, 999, ruth.ID, pagination.Query{Size: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
}
