package worker

import (
	"context"
	"time"

	"github.com/booknetwork/booknet/pkg/config"
	"github.com/booknetwork/booknet/pkg/jobs"
	"github.com/booknetwork/booknet/pkg/mail"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/users"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/uptrace/bun"
)

var processID = uuid.NewString()

type Worker struct {
	config *config.Config
	log    logger.Logger

	processFuncs map[string]func(ctx context.Context, job *models.Job) error

	jobService  *jobs.Service
	userService *users.Service
	mailer      mail.Mailer

	queue          chan *models.Job
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
}

func New(cfg *config.Config, db *bun.DB, mailer mail.Mailer) *Worker {
	w := &Worker{
		config: cfg,
		log:    logger.New(),

		jobService:  jobs.NewService(db),
		userService: users.NewService(db),
		mailer:      mailer,

		queue:          make(chan *models.Job, cfg.WorkerProcesses),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
	}

	w.processFuncs = map[string]func(ctx context.Context, job *models.Job) error{
		models.JobTypeActivationEmail: w.ProcessActivationEmailJob,
	}

	return w
}

func (w *Worker) Start() {
	go w.fetchJobs()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
}

func (w *Worker) fetchJobs() {
	duration := w.config.WorkerPollInterval
	timer := time.NewTimer(duration)

	for {
		select {
		case <-w.shutdown:
			// We're shutting down, so stop adding more jobs to the queue.
			w.doneFetching <- struct{}{}
			return
		case <-timer.C:
			claimed, err := w.claimJobs(context.Background())
			if err != nil {
				w.log.Err(err).Error("claim jobs error")
			}
			for _, job := range claimed {
				select {
				case w.queue <- job:
				case <-w.shutdown:
					w.doneFetching <- struct{}{}
					return
				}
			}
			timer.Reset(duration)
		}
	}
}

// claimJobs picks up pending jobs, and in-progress jobs abandoned by another
// process, and marks them as owned by this process.
//
// Listing and claiming are separate statements and any in-progress job not
// owned by this process counts as abandoned (left over from a previous run).
// Both only hold with a single worker process per database; a second live
// process would run the same jobs twice.
func (w *Worker) claimJobs(ctx context.Context) ([]*models.Job, error) {
	found, err := w.jobService.ListJobs(ctx, jobs.ListJobsOptions{
		Limit:              pointerutil.Int(w.config.WorkerProcesses),
		Statuses:           []string{models.JobStatusPending, models.JobStatusInProgress},
		ProcessIDToExclude: &processID,
	})
	if err != nil {
		return nil, err
	}

	claimed := make([]*models.Job, 0, len(found))
	for _, job := range found {
		job.Status = models.JobStatusInProgress
		job.ProcessID = &processID
		err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
			Columns: []string{"status", "process_id"},
		})
		if err != nil {
			w.log.Err(err).Error("update job error", logger.Data{"job_id": job.ID})
			continue
		}
		claimed = append(claimed, job)
	}
	return claimed, nil
}

func (w *Worker) processJobs() {
	for {
		select {
		case <-w.shutdown:
			w.doneProcessing <- struct{}{}
			return
		case job := <-w.queue:
			// Prep the context to be passed down to the process function.
			id, err := uuid.NewRandom()
			if err != nil {
				w.log.Err(err).Error("new uuid error")
				continue
			}
			log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": processID})
			ctx := log.WithContext(context.Background())

			if err := w.ProcessJob(ctx, job); err != nil {
				log.Err(err).Error("update job error")
			}
		}
	}
}

// ProcessJob runs the job's process function and records the outcome. A
// failed job goes back to pending until it has used up WorkerMaxAttempts.
func (w *Worker) ProcessJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	var runErr error
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		runErr = errors.Errorf("no process function for job type %q", job.Type)
	} else {
		runErr = fn(ctx, job)
	}

	job.Attempts++
	columns := []string{"status", "attempts", "last_error", "process_id"}

	switch {
	case runErr == nil:
		job.Status = models.JobStatusCompleted
		job.LastError = nil
	case job.Attempts >= w.config.WorkerMaxAttempts:
		log.Err(runErr).Error("job failed, giving up", logger.Data{"attempts": job.Attempts})
		job.Status = models.JobStatusFailed
		job.LastError = pointerutil.String(runErr.Error())
	default:
		log.Warn("job failed, will retry", logger.Data{"attempts": job.Attempts, "error": runErr.Error()})
		job.Status = models.JobStatusPending
		job.LastError = pointerutil.String(runErr.Error())
		job.ProcessID = nil
	}

	return w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: columns})
}

func (w *Worker) Shutdown() {
	close(w.shutdown)

	<-w.doneFetching
	for i := 0; i < w.config.WorkerProcesses; i++ {
		<-w.doneProcessing
	}
}
