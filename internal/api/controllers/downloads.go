package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/godl/internal/app"
	"github.com/datallboy/godl/internal/domain"
)

type DownloadController struct {
	App *app.Context
}

// Submit admits a download. The outcome is delivered to the history store,
// metrics and log, not to the HTTP caller.
func (ctrl *DownloadController) Submit(c *echo.Context) error {
	var req domain.DownloadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	req.Sink = nil
	dest, err := ctrl.resolveDestination(req)
	if err != nil {
		return respondError(c, err)
	}
	req.Destination = dest

	if err := ctrl.App.Submit(req); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusAccepted, SubmitResponse{
		URL:         req.URL,
		Destination: req.Destination,
		Status:      "queued",
	})
}

// Cancel withdraws the download for ?url=.
func (ctrl *DownloadController) Cancel(c *echo.Context) error {
	rawURL := c.QueryParam("url")
	if err := domain.ValidateURL(rawURL); err != nil {
		return respondError(c, err)
	}

	ctrl.App.Orchestrator.Cancel(domain.DownloadRequest{URL: rawURL})
	return c.NoContent(http.StatusNoContent)
}

// List shows what is queued and what the workers are busy with.
func (ctrl *DownloadController) List(c *echo.Context) error {
	o := ctrl.App.Orchestrator
	return c.JSON(http.StatusOK, DownloadsResponse{
		Running: o.Running(),
		Workers: o.Workers(),
		Queued:  nonNil(o.Queued()),
		Active:  nonNil(o.Active()),
	})
}

var errOutsideOutDir = errors.New("destination must stay inside the output directory")

// resolveDestination places relative and missing destinations under the
// configured output directory. A missing destination takes the last segment
// of the URL path. Destinations that resolve outside the output directory are
// rejected.
func (ctrl *DownloadController) resolveDestination(req domain.DownloadRequest) (string, error) {
	dest := req.Destination
	if dest == "" {
		u, err := url.Parse(req.URL)
		if err != nil || u.Path == "" || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
			return "", nil
		}
		dest = path.Base(u.Path)
	}

	outDir := filepath.Clean(ctrl.App.Config.Download.OutDir)
	target := filepath.Clean(dest)
	if !filepath.IsAbs(target) {
		target = filepath.Join(outDir, target)
	}

	rel, err := filepath.Rel(outDir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.NewError(domain.KindInvalidArgument, 0, errOutsideOutDir)
	}
	return target, nil
}

func nonNil(reqs []domain.DownloadRequest) []domain.DownloadRequest {
	if reqs == nil {
		return []domain.DownloadRequest{}
	}
	return reqs
}
