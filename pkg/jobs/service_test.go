package jobs

import (
	"context"
	"database/sql"
	"testing"

	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/migrations"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
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

func TestEnqueueActivationEmail(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	job, err := svc.EnqueueActivationEmail(ctx, 42, "123456")
	require.NoError(t, err)
	assert.NotZero(t, job.ID)

	retrieved, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobTypeActivationEmail, retrieved.Type)
	assert.Equal(t, models.JobStatusPending, retrieved.Status)
	assert.Equal(t, 0, retrieved.Attempts)

	data, ok := retrieved.DataParsed.(*models.JobActivationEmailData)
	require.True(t, ok)
	assert.Equal(t, 42, data.UserID)
	assert.Equal(t, "123456", data.Token)
}

func TestRetrieveJob_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.RetrieveJob(context.Background(), RetrieveJobOptions{ID: pointerutil.Int(999)})
	assert.ErrorIs(t, err, errcodes.NotFound("Job"))
}

func TestListJobs_Filters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	pending, err := svc.EnqueueActivationEmail(ctx, 1, "111111")
	require.NoError(t, err)
	claimed, err := svc.EnqueueActivationEmail(ctx, 2, "222222")
	require.NoError(t, err)
	done, err := svc.EnqueueActivationEmail(ctx, 3, "333333")
	require.NoError(t, err)

	claimed.Status = models.JobStatusInProgress
	claimed.ProcessID = pointerutil.String("proc-a")
	require.NoError(t, svc.UpdateJob(ctx, claimed, UpdateJobOptions{Columns: []string{"status", "process_id"}}))

	done.Status = models.JobStatusCompleted
	require.NoError(t, svc.UpdateJob(ctx, done, UpdateJobOptions{Columns: []string{"status"}}))

	active, total, err := svc.ListJobsWithTotal(ctx, ListJobsOptions{
		Statuses: []string{models.JobStatusPending, models.JobStatusInProgress},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, pending.ID, active[0].ID)

	// Jobs claimed by the excluded process are skipped.
	others, err := svc.ListJobs(ctx, ListJobsOptions{
		Statuses:           []string{models.JobStatusPending, models.JobStatusInProgress},
		ProcessIDToExclude: pointerutil.String("proc-a"),
	})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, pending.ID, others[0].ID)

	// Jobs claimed by some other process are picked up again.
	others, err = svc.ListJobs(ctx, ListJobsOptions{
		Statuses:           []string{models.JobStatusInProgress},
		ProcessIDToExclude: pointerutil.String("proc-b"),
	})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, claimed.ID, others[0].ID)
}

func TestUpdateJob_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)

	job := &models.Job{ID: 999, Status: models.JobStatusCompleted}
	err := svc.UpdateJob(context.Background(), job, UpdateJobOptions{Columns: []string{"status"}})
	assert.ErrorIs(t, err, errcodes.NotFound("Job"))
}
