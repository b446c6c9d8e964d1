package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/godl/internal/app"
	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/store"
)

type HistoryController struct {
	App *app.Context
}

// List returns recorded outcomes, newest first. Supports ?url=, ?kind= and
// ?limit=.
func (ctrl *HistoryController) List(c *echo.Context) error {
	f := store.Filter{URL: c.QueryParam("url")}

	if raw := c.QueryParam("kind"); raw != "" {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		f.Kind = &kind
	}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		}
		f.Limit = limit
	}

	items, err := ctrl.App.Store.ListOutcomes(c.Request().Context(), f)
	if err != nil {
		ctrl.App.Logger.Error("Failed to list history: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read history")
	}

	return c.JSON(http.StatusOK, HistoryResponse{Count: len(items), Items: items})
}

func (ctrl *HistoryController) Get(c *echo.Context) error {
	o, err := ctrl.App.Store.GetOutcome(c.Request().Context(), c.Param("id"))
	if err != nil {
		ctrl.App.Logger.Error("Failed to read outcome %s: %v", c.Param("id"), err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read history")
	}
	if o == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "outcome not found"})
	}
	return c.JSON(http.StatusOK, o)
}
