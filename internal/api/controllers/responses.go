package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/godl/internal/domain"
)

type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

type SubmitResponse struct {
	URL         string `json:"url"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
}

type DownloadsResponse struct {
	Running bool                     `json:"running"`
	Workers int                      `json:"workers"`
	Queued  []domain.DownloadRequest `json:"queued"`
	Active  []domain.DownloadRequest `json:"active"`
}

type SizeResponse struct {
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	StatusCode int    `json:"status_code"`
}

type HistoryResponse struct {
	Count int              `json:"count"`
	Items []domain.Outcome `json:"items"`
}

// respondError maps orchestrator errors onto HTTP statuses.
func respondError(c *echo.Context, err error) error {
	body := ErrorResponse{Error: err.Error()}

	var de *domain.Error
	if errors.As(err, &de) {
		body.Kind = de.Kind.Label()
		body.StatusCode = de.StatusCode
	}

	return c.JSON(httpStatus(err), body)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotRunning), errors.Is(err, domain.ErrPoolDisabled):
		return http.StatusServiceUnavailable
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindStopped:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
