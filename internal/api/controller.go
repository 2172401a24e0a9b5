// Package api exposes the alert rule service over HTTP. All responses
// use the {status, body?, message?} envelope the form clients consume;
// status=false is the only failure signal they recognize.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/rateintel/rateintel-go/internal/conf"
	"github.com/rateintel/rateintel-go/internal/datastore/repository"
	"github.com/rateintel/rateintel-go/internal/logger"
	"github.com/rateintel/rateintel-go/internal/notification"
	"github.com/rateintel/rateintel-go/internal/observability/metrics"
)

// envelope is the wire shape of every response.
type envelope struct {
	Status  bool   `json:"status"`
	Body    any    `json:"body,omitempty"`
	Message string `json:"message,omitempty"`
}

// Controller handles the HTTP surface.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	repo     repository.AlertRepository
	notices  *notification.Service
	settings *conf.Settings
	log      logger.Logger

	// lookupCache holds channel and compset tables; lookupGroup folds
	// concurrent refreshes of the same key into one query.
	lookupCache *gocache.Cache
	lookupGroup singleflight.Group

	// updating guards each rule against a double-submitted toggle or
	// delete. Different rules update independently.
	updating sync.Map
}

// New creates the controller and registers all routes.
func New(settings *conf.Settings, repo repository.AlertRepository, notices *notification.Service, log logger.Logger) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	ttl := settings.Alerts.LookupCacheTTL.Std()
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &Controller{
		Echo:        e,
		repo:        repo,
		notices:     notices,
		settings:    settings,
		log:         log,
		lookupCache: gocache.New(ttl, 2*ttl),
	}

	e.Use(c.observeRequests)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	c.Group = e.Group("/api/v1")
	c.initAlertRoutes()
	c.initLookupRoutes()
	c.initNoticeRoutes()
	return c
}

// Start runs the HTTP server until it fails or is shut down.
func (c *Controller) Start() error {
	addr := c.settings.Server.Address()
	c.log.Info("starting http server", logger.String("addr", addr))
	if err := c.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

// observeRequests records per-route latency.
func (c *Controller) observeRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		status := ctx.Response().Status
		if err != nil {
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
		}
		metrics.ObserveRequest(ctx.Path(), strconv.Itoa(status), time.Since(start))
		return err
	}
}

// ok writes a success envelope.
func (c *Controller) ok(ctx echo.Context, body any) error {
	return ctx.JSON(http.StatusOK, envelope{Status: true, Body: body})
}

// fail writes a failure envelope with the given HTTP status code. The
// message is the user-facing text; internal error detail stays in the
// logs.
func (c *Controller) fail(ctx echo.Context, code int, message string) error {
	return ctx.JSON(code, envelope{Status: false, Message: message})
}

// handleError logs the underlying error and writes a failure envelope.
func (c *Controller) handleError(ctx echo.Context, err error, message string, code int) error {
	if c.log != nil {
		c.log.Error(message,
			logger.String("path", ctx.Path()),
			logger.Error(err))
	}
	return c.fail(ctx, code, message)
}

// querySID parses the subscriber id every read endpoint scopes by.
func querySID(ctx echo.Context) (uint, error) {
	raw := ctx.QueryParam("sid")
	if raw == "" {
		return 0, fmt.Errorf("missing sid parameter")
	}
	sid, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || sid == 0 {
		return 0, fmt.Errorf("invalid sid %q", raw)
	}
	return uint(sid), nil
}
