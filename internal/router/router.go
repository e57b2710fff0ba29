package router // package router defines how HTTP routes are registered for the API

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/labstack/echo/v4"                    // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"  // stock echo middleware
	"github.com/labstack/gommon/log"                 // echo's logger levels
	"github.com/prometheus/client_golang/prometheus" // metrics registry
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/learntrack/internal/config"
	"github.com/iliyamo/learntrack/internal/handler"
	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/web"
)

const (
	accessLogProduction  = `${remote_ip} - ${id} [${time_rfc3339}] "${method} ${uri} ${protocol}" ${status} ${bytes_out} "${referer}" "${user_agent}" ${latency_human}` + "\n"
	accessLogDevelopment = "${method} ${uri} ${status} ${latency_human}\n"
)

// Setup installs the error handler and the server-wide middleware chain.
// Metrics run inside Recover so a panicking handler is still counted as a
// 500.
func Setup(e *echo.Echo, cfg config.Config, m *middleware.Metrics) {
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Logger.SetLevel(LogLevel(cfg.LogLevel))

	format := accessLogDevelopment
	if cfg.IsProduction() {
		format = accessLogProduction
	}
	e.Use(echomw.RequestID())
	e.Use(echomw.LoggerWithConfig(echomw.LoggerConfig{Format: format}))
	e.Use(echomw.Recover())
	e.Use(m.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "x-auth-token"},
		AllowCredentials: true,
	}))
	if cfg.IsProduction() {
		e.Use(echomw.Secure())
	}
	// uploads are the largest bodies; leave 1 MiB for the multipart envelope
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", cfg.MaxUploadBytes>>10+1024)))
}

// LogLevel maps LOG_LEVEL onto echo's logger levels.  Unknown values mean
// INFO.
func LogLevel(s string) log.Lvl {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return log.DEBUG
	case "WARN", "WARNING":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	default:
		return log.INFO
	}
}

// RegisterRoutes registers the health endpoints that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)        // plain "ok" for load balancers
	e.GET("/api/health", handler.APIHealth) // JSON health with server time
}

// RegisterMetrics exposes the Prometheus registry at /metrics.
func RegisterMetrics(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// RegisterStatic serves the embedded pages.  It is registered last so every
// API route wins over the catch-all; a missing file falls through to the
// error handler, which renders the 404 page.
func RegisterStatic(e *echo.Echo) {
	e.StaticFS("/", documentRoot())
}

func documentRoot() fs.FS {
	return echo.MustSubFS(web.Public, "public")
}
