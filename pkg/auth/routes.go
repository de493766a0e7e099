package auth

import (
	"github.com/booknetwork/booknet/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all auth routes and returns the service so the
// caller can build the middleware guarding the rest of the API.
func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config) *Service {
	authService := NewService(db, cfg)
	authMiddleware := NewMiddleware(authService)

	h := &handler{
		authService: authService,
	}

	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/authenticate", h.authenticate)
	g.GET("/activate-account", h.activate)
	g.POST("/logout", h.logout)
	g.GET("/me", h.me, authMiddleware.Authenticate)

	return authService
}
