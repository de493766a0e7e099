package worker

import (
	"context"

	"github.com/booknetwork/booknet/pkg/mail"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

func (w *Worker) ProcessActivationEmailJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	data, ok := job.DataParsed.(*models.JobActivationEmailData)
	if !ok {
		if err := job.UnmarshalData(); err != nil {
			return err
		}
		data = job.DataParsed.(*models.JobActivationEmailData)
	}

	user, err := w.userService.Retrieve(ctx, users.RetrieveUserOptions{ID: &data.UserID})
	if err != nil {
		return errors.Wrapf(err, "loading user %d", data.UserID)
	}

	msg, err := mail.ActivationMessage(user.Email, mail.ActivationData{
		Username:        user.FullName(),
		ConfirmationURL: w.config.ActivationURL,
		ActivationCode:  data.Token,
	})
	if err != nil {
		return err
	}

	log.Info("sending activation email", logger.Data{"user_id": user.ID})
	return w.mailer.Send(ctx, msg)
}
