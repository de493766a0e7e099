package feedback

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		feedbackService: NewService(db),
	}

	g.POST("", h.submit)
	g.GET("/book/:id", h.listByBook)
}
