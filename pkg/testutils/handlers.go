package testutils

import (
	"net/http"

	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type handler struct {
	db *bun.DB
}

// createUserRequest is the request body for creating a test user.
type createUserRequest struct {
	FirstName string `json:"first_name" mod:"trim" validate:"required"`
	LastName  string `json:"last_name" mod:"trim" validate:"required"`
	Email     string `json:"email" mod:"trim,lcase" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

type createUserResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// createUser creates an already activated user.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	user, err := users.NewService(h.db).Create(ctx, users.CreateUserOptions{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Enabled:   true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusCreated, createUserResponse{
		ID:    user.ID,
		Email: user.Email,
	})
}

type deleteAllDataResponse struct {
	Deleted map[string]int `json:"deleted"`
}

// deleteAllData wipes every table except roles, children first.
// DELETE /test/data.
func (h *handler) deleteAllData(c echo.Context) error {
	ctx := c.Request().Context()

	tables := []struct {
		name  string
		model interface{}
	}{
		{"feedbacks", (*models.Feedback)(nil)},
		{"loans", (*models.Loan)(nil)},
		{"books", (*models.Book)(nil)},
		{"tokens", (*models.Token)(nil)},
		{"jobs", (*models.Job)(nil)},
		{"users", (*models.User)(nil)},
	}

	resp := deleteAllDataResponse{Deleted: map[string]int{}}
	for _, t := range tables {
		result, err := h.db.NewDelete().
			Model(t.model).
			Where("1=1").
			Exec(ctx)
		if err != nil {
			return errors.Wrapf(err, "failed to delete %s", t.name)
		}
		n, _ := result.RowsAffected()
		resp.Deleted[t.name] = int(n)
	}

	return c.JSON(http.StatusOK, resp)
}
