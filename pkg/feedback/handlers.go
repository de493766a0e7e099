package feedback

import (
	"net/http"

	"github.com/booknetwork/booknet/pkg/auth"
	"github.com/booknetwork/booknet/pkg/books"
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	feedbackService *Service
}

func (h *handler) submit(c echo.Context) error {
	ctx := c.Request().Context()
	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := SubmitPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	id, err := h.feedbackService.Submit(ctx, SubmitOptions{
		BookID:   params.BookID,
		CallerID: user.ID,
		Note:     params.Note,
		Comment:  params.Comment,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, id))
}

func (h *handler) listByBook(c echo.Context) error {
	ctx := c.Request().Context()
	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}
	bookID, err := books.BookID(c)
	if err != nil {
		return err
	}

	params := pagination.Query{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.feedbackService.ListByBook(ctx, bookID, user.ID, params)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, page))
}
