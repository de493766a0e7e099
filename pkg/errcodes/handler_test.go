package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHandler().Handle(err, c)

	body := map[string]map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body["error"]
}

func TestHandle(t *testing.T) {
	t.Parallel()

	t.Run("custom error", func(t *testing.T) {
		code, payload := handle(t, errors.WithStack(Conflict("Book is already borrowed.")))
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "conflict", payload["code"])
		assert.Equal(t, "Book is already borrowed.", payload["message"])
		assert.EqualValues(t, http.StatusConflict, payload["status_code"])
	})

	t.Run("echo error", func(t *testing.T) {
		code, payload := handle(t, echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"))
		assert.Equal(t, http.StatusMethodNotAllowed, code)
		assert.Equal(t, "method_not_allowed", payload["code"])
	})

	t.Run("generic error", func(t *testing.T) {
		code, payload := handle(t, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "internal_server_error", payload["code"])
		assert.Equal(t, "Internal Server Error", payload["message"])
	})

	t.Run("committed response is left alone", func(t *testing.T) {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, c.String(http.StatusOK, "partial"))

		NewHandler().Handle(errors.New("late failure"), c)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "partial", rec.Body.String())
	})
}
