package loans

import (
	"context"
	"net/http"

	"github.com/booknetwork/booknet/pkg/auth"
	"github.com/booknetwork/booknet/pkg/books"
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	loanService *Service
}

type bookAction func(ctx context.Context, bookID, callerID int) (int, error)

// act runs a lifecycle operation on the :id book and answers with the id it
// returns.
func (h *handler) act(fn bookAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := auth.UserFromContext(c)
		if !ok {
			return errcodes.Unauthorized("Authentication required")
		}
		bookID, err := books.BookID(c)
		if err != nil {
			return err
		}

		id, err := fn(c.Request().Context(), bookID, user.ID)
		if err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(c.JSON(http.StatusOK, id))
	}
}

func (h *handler) listBorrowed(c echo.Context) error {
	return h.listPage(c, h.loanService.ListBorrowed)
}

func (h *handler) listReturned(c echo.Context) error {
	return h.listPage(c, h.loanService.ListReturned)
}

func (h *handler) listPage(c echo.Context, fn func(context.Context, int, pagination.Query) (*pagination.Page[*models.Loan], error)) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := pagination.Query{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := fn(c.Request().Context(), user.ID, params)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, page))
}
