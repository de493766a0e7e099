package auth

import (
	"net/http"
	"time"

	"github.com/booknetwork/booknet/pkg/errcodes"
	"github.com/booknetwork/booknet/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// CookieName is the name of the session cookie.
const CookieName = "booknet_session"

type handler struct {
	authService *Service
}

func buildMeResponse(user *models.User) MeResponse {
	resp := MeResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName(),
		Email:     user.Email,
	}
	if user.Role != nil {
		resp.RoleName = user.Role.Name
	}
	return resp
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	_, err := h.authService.Register(ctx, RegisterOptions{
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Email:     params.Email,
		Password:  params.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusAccepted))
}

func (h *handler) authenticate(c echo.Context) error {
	ctx := c.Request().Context()

	params := AuthenticatePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	_, token, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return errors.WithStack(err)
	}

	// Set HTTP-only cookie for browser clients; API clients use the token.
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authService.jwtExpiry / time.Second),
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return errors.WithStack(c.JSON(http.StatusOK, AuthenticateResponse{Token: token}))
}

func (h *handler) activate(c echo.Context) error {
	ctx := c.Request().Context()

	params := ActivateQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.authService.Activate(ctx, params.Token); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusOK))
}

func (h *handler) logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) me(c echo.Context) error {
	user, ok := UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}
	return errors.WithStack(c.JSON(http.StatusOK, buildMeResponse(user)))
}
