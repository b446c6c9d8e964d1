package controllers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/godl/internal/app"
)

// ProbeController exposes the synchronous FetchSize and FetchBody calls.
// They run on the request goroutine and work with zero workers.
type ProbeController struct {
	App *app.Context
}

func (ctrl *ProbeController) Size(c *echo.Context) error {
	rawURL := c.QueryParam("url")

	size, status, err := ctrl.App.Orchestrator.FetchSize(c.Request().Context(), rawURL)
	ctrl.App.Metrics.RecordFetch("size", err)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, SizeResponse{URL: rawURL, Size: size, StatusCode: status})
}

// Fetch proxies the remote body. The transport only writes on a 200, so an
// upstream failure can still be reported as JSON.
func (ctrl *ProbeController) Fetch(c *echo.Context) error {
	rawURL := c.QueryParam("url")

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	_, err := ctrl.App.Orchestrator.FetchBody(c.Request().Context(), rawURL, c.Response())
	ctrl.App.Metrics.RecordFetch("body", err)
	if err != nil {
		c.Response().Header().Del(echo.HeaderContentType)
		return respondError(c, err)
	}
	return nil
}
