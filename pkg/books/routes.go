package books

import (
	"github.com/booknetwork/booknet/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a group that already
// requires authentication.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{
		config:      cfg,
		bookService: NewService(db),
	}

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/owner", h.listOwner)
	g.GET("/:id", h.retrieve)
	g.POST("/cover/:id", h.uploadCover)
	g.GET("/cover/:id", h.cover)
}
