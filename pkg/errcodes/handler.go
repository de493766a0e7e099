package errcodes

import (
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

type errorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// Response is the JSON body written for every failed request.
type Response struct {
	Error errorDetail `json:"error"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is an Echo error handler. *Error values and echo HTTP errors keep
// their status; anything else is logged and reported as a 500.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}

	resp := responseFor(err)
	if resp.Error.StatusCode == http.StatusInternalServerError {
		log.Err(err).Error("server error")
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(resp.Error.StatusCode, resp); err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func responseFor(err error) Response {
	detail := errorDetail{StatusCode: http.StatusInternalServerError}

	var e *Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &e):
		detail = errorDetail{Code: e.Code, Message: e.Message, StatusCode: e.HTTPCode}
	case errors.As(err, &he):
		msg := fmt.Sprint(he.Message)
		detail = errorDetail{Code: strcase.ToSnake(msg), Message: msg, StatusCode: he.Code}
	}

	if detail.StatusCode == http.StatusInternalServerError && detail.Message == "" {
		detail.Code = "internal_server_error"
		detail.Message = "Internal Server Error"
	}

	return Response{Error: detail}
}
