package worker

import (
	"context"
	"database/sql"
	"testing"

	"github.com/booknetwork/booknet/pkg/config"
	"github.com/booknetwork/booknet/pkg/jobs"
	"github.com/booknetwork/booknet/pkg/mail"
	"github.com/booknetwork/booknet/pkg/migrations"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// testContext holds all the dependencies needed for testing the worker.
type testContext struct {
	t          *testing.T
	ctx        context.Context
	db         *bun.DB
	cfg        *config.Config
	worker     *Worker
	mailer     *mail.LogMailer
	jobService *jobs.Service
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	cfg := config.NewForTest()
	cfg.WorkerProcesses = 1
	mailer := &mail.LogMailer{}

	tc := &testContext{
		t:          t,
		ctx:        logger.New().WithContext(context.Background()),
		db:         db,
		cfg:        cfg,
		worker:     New(cfg, db, mailer),
		mailer:     mailer,
		jobService: jobs.NewService(db),
	}

	t.Cleanup(func() {
		db.Close()
	})

	return tc
}

func (tc *testContext) createUser(email string) *models.User {
	tc.t.Helper()

	user, err := users.NewService(tc.db).Create(tc.ctx, users.CreateUserOptions{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     email,
		Password:  "password123",
	})
	require.NoError(tc.t, err)
	return user
}

func (tc *testContext) enqueue(userID int, token string) *models.Job {
	tc.t.Helper()

	job, err := tc.jobService.EnqueueActivationEmail(tc.ctx, userID, token)
	require.NoError(tc.t, err)
	return job
}

func (tc *testContext) reload(job *models.Job) *models.Job {
	tc.t.Helper()

	found, err := tc.jobService.RetrieveJob(tc.ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(tc.t, err)
	return found
}

// failingMailer rejects every message.
type failingMailer struct{}

func (failingMailer) Send(_ context.Context, _ *mail.Message) error {
	return errors.New("smtp unavailable")
}
