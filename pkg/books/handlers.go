package books

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/booknetwork/booknet/pkg/auth"
	"github.com/booknetwork/booknet/pkg/config"
	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/isbn"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/booknetwork/booknet/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
)

type handler struct {
	config      *config.Config
	bookService *Service
}

// BookID parses the :id path parameter. A malformed id can't match any book.
func BookID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("Book")
	}
	return id, nil
}

func callerID(c echo.Context) (int, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return 0, errcodes.Unauthorized("Authentication required")
	}
	return user.ID, nil
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	caller, err := callerID(c)
	if err != nil {
		return err
	}

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		OwnerID:    caller,
		Title:      params.Title,
		AuthorName: params.AuthorName,
		ISBN:       isbn.Normalize(params.ISBN),
		Synopsis:   params.Synopsis,
		Shareable:  params.Shareable,
	}
	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	log.Info("book created", logger.Data{"book_id": book.ID, "owner_id": caller})

	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := BookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

// list returns the books the caller can borrow.
func (h *handler) list(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	return h.listPage(c, ListBooksOptions{
		ExcludeOwnerID: &caller,
		Displayable:    true,
	})
}

func (h *handler) listOwner(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}
	return h.listPage(c, ListBooksOptions{OwnerID: &caller})
}

func (h *handler) listPage(c echo.Context, opts ListBooksOptions) error {
	ctx := c.Request().Context()

	params := pagination.Query{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts.Limit = pointerutil.Int(params.Limit())
	opts.Offset = pointerutil.Int(params.Offset())

	books, total, err := h.bookService.ListBooksWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, pagination.New(books, params, total)))
}

func (h *handler) uploadCover(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	caller, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := BookID(c)
	if err != nil {
		return err
	}

	params := UploadCoverPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	fh, ok := params.FormFiles["file"]
	if !ok || fh == nil {
		return errcodes.ValidationError("file is required.")
	}
	if fh.Size > MaxCoverBytes {
		return errcodes.ValidationError("file must be at most 10 MB.")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxCoverBytes))
	if err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UploadCover(ctx, UploadCoverOptions{
		BookID:   id,
		CallerID: caller,
		Dir:      h.config.CoverDir,
		Data:     data,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("cover uploaded", logger.Data{"book_id": book.ID, "cover": *book.CoverFilename})

	return errors.WithStack(c.NoContent(http.StatusOK))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := BookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.Lock(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if book.CoverFilename == nil {
		return errcodes.NotFound("Cover")
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return errors.WithStack(c.File(filepath.Join(h.config.CoverDir, *book.CoverFilename)))
}
