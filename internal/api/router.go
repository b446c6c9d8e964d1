package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datallboy/godl/internal/api/controllers"
	"github.com/datallboy/godl/internal/app"
)

func RegisterRoutes(e *echo.Echo, app *app.Context) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	downloads := &controllers.DownloadController{App: app}
	probe := &controllers.ProbeController{App: app}
	history := &controllers.HistoryController{App: app}

	g := e.Group("/api")
	g.POST("/downloads", downloads.Submit)
	g.DELETE("/downloads", downloads.Cancel)
	g.GET("/downloads", downloads.List)

	g.GET("/size", probe.Size)
	g.GET("/fetch", probe.Fetch)

	g.GET("/history", history.List)
	g.GET("/history/:id", history.Get)

	// Prometheus scrape endpoint
	metricsHandler := promhttp.HandlerFor(app.Metrics.Registry(), promhttp.HandlerOpts{})
	e.GET("/metrics", func(c *echo.Context) error {
		metricsHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}
