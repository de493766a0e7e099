package loans

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the lending routes on the authenticated
// /books group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		loanService: NewService(db),
	}

	g.GET("/borrowed", h.listBorrowed)
	g.GET("/returned", h.listReturned)
	g.PATCH("/shareable/:id", h.act(h.loanService.ToggleShareable))
	g.PATCH("/archived/:id", h.act(h.loanService.ToggleArchived))
	g.POST("/borrow/:id", h.act(h.loanService.Borrow))
	g.PATCH("/borrow/return/:id", h.act(h.loanService.Return))
	g.PATCH("/borrow/return/approve/:id", h.act(h.loanService.ApproveReturn))
}
