package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initNoticeRoutes registers the transient-notice endpoints.
func (c *Controller) initNoticeRoutes() {
	c.Group.GET("/notices", c.ListNotices)
	c.Group.DELETE("/notices/:id", c.DismissNotice)
}

// ListNotices returns the notices that have not yet expired.
func (c *Controller) ListNotices(ctx echo.Context) error {
	if c.notices == nil {
		return c.ok(ctx, []any{})
	}
	return c.ok(ctx, c.notices.Active())
}

// DismissNotice removes a notice before its TTL expires.
func (c *Controller) DismissNotice(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return c.fail(ctx, http.StatusBadRequest, "Missing notice id")
	}
	if c.notices != nil {
		c.notices.Dismiss(id)
	}
	return c.ok(ctx, nil)
}
