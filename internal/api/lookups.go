package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/rateintel/rateintel-go/internal/alerting"
	"github.com/rateintel/rateintel-go/internal/datastore/entities"
	"github.com/rateintel/rateintel-go/internal/datastore/repository"
	"github.com/rateintel/rateintel-go/internal/logger"
	"github.com/rateintel/rateintel-go/internal/observability/metrics"
)

// initLookupRoutes registers the lookup-table and bootstrap endpoints.
func (c *Controller) initLookupRoutes() {
	c.Group.GET("/channels", c.GetChannels)
	c.Group.GET("/channels/ota", c.GetOTAChannels)
	c.Group.GET("/compsets", c.GetCompsets)
	c.Group.GET("/bootstrap", c.GetBootstrap)
}

// cachedChannels returns the channel table through the lookup cache.
// Concurrent misses for the same key run a single query.
func (c *Controller) cachedChannels(ctx context.Context, sid uint, otaOnly bool) ([]entities.Channel, error) {
	key := fmt.Sprintf("channels:%d:%t", sid, otaOnly)
	if cached, found := c.lookupCache.Get(key); found {
		return cached.([]entities.Channel), nil
	}
	result, err, _ := c.lookupGroup.Do(key, func() (any, error) {
		channels, err := c.repo.ListChannels(ctx, sid, otaOnly)
		if err != nil {
			return nil, err
		}
		c.lookupCache.Set(key, channels, gocache.DefaultExpiration)
		return channels, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]entities.Channel), nil
}

// cachedProperties returns the compset table through the lookup cache.
func (c *Controller) cachedProperties(ctx context.Context, sid uint, includeSubscriber bool) ([]entities.Property, error) {
	key := fmt.Sprintf("compsets:%d:%t", sid, includeSubscriber)
	if cached, found := c.lookupCache.Get(key); found {
		return cached.([]entities.Property), nil
	}
	result, err, _ := c.lookupGroup.Do(key, func() (any, error) {
		properties, err := c.repo.ListProperties(ctx, sid, includeSubscriber)
		if err != nil {
			return nil, err
		}
		c.lookupCache.Set(key, properties, gocache.DefaultExpiration)
		return properties, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]entities.Property), nil
}

// lookups assembles the compiler's lookup tables for one subscriber.
func (c *Controller) lookups(ctx context.Context, sid uint) (*alerting.Lookups, error) {
	properties, err := c.cachedProperties(ctx, sid, true)
	if err != nil {
		return nil, err
	}
	channels, err := c.cachedChannels(ctx, sid, false)
	if err != nil {
		return nil, err
	}
	return &alerting.Lookups{Properties: properties, Channels: channels}, nil
}

// GetChannels returns the subscriber's channel table.
func (c *Controller) GetChannels(ctx echo.Context) error {
	sid, err := querySID(ctx)
	if err != nil {
		return c.fail(ctx, http.StatusBadRequest, err.Error())
	}
	channels, err := c.cachedChannels(ctx.Request().Context(), sid, false)
	if err != nil {
		return c.handleError(ctx, err, "Failed to list channels", http.StatusInternalServerError)
	}
	return c.ok(ctx, channels)
}

// GetOTAChannels returns only the channels that support ranking alerts.
func (c *Controller) GetOTAChannels(ctx echo.Context) error {
	sid, err := querySID(ctx)
	if err != nil {
		return c.fail(ctx, http.StatusBadRequest, err.Error())
	}
	channels, err := c.cachedChannels(ctx.Request().Context(), sid, true)
	if err != nil {
		return c.handleError(ctx, err, "Failed to list OTA channels", http.StatusInternalServerError)
	}
	return c.ok(ctx, channels)
}

// GetCompsets returns the subscriber's compset table. Pass
// includeSubscriber=true to include the subscriber's own property.
func (c *Controller) GetCompsets(ctx echo.Context) error {
	sid, err := querySID(ctx)
	if err != nil {
		return c.fail(ctx, http.StatusBadRequest, err.Error())
	}
	includeSubscriber := ctx.QueryParam("includeSubscriber") == "true"
	properties, err := c.cachedProperties(ctx.Request().Context(), sid, includeSubscriber)
	if err != nil {
		return c.handleError(ctx, err, "Failed to list compsets", http.StatusInternalServerError)
	}
	return c.ok(ctx, properties)
}

// bootstrapBody is everything the alert settings form needs to open.
// Sections that failed to load come back empty with their error noted,
// so one slow or broken table does not blank the whole form.
type bootstrapBody struct {
	Channels    []entities.Channel  `json:"channels"`
	OTAChannels []entities.Channel  `json:"otaChannels"`
	Compsets    []entities.Property `json:"compsets"`
	Alerts      []alerting.Row      `json:"alerts"`
	Schema      alerting.Schema     `json:"schema"`
	Errors      map[string]string   `json:"errors,omitempty"`
}

// GetBootstrap loads the form's lookup tables and compiled rule rows in
// one round trip, fanning the queries out concurrently.
func (c *Controller) GetBootstrap(ctx echo.Context) error {
	sid, err := querySID(ctx)
	if err != nil {
		return c.fail(ctx, http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	reqCtx := ctx.Request().Context()

	body := bootstrapBody{Schema: alerting.GetSchema()}
	sectionErrors := make(map[string]string)

	var mu sync.Mutex
	var wg sync.WaitGroup
	section := func(name string, load func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := load(); err != nil {
				if c.log != nil {
					c.log.Warn("bootstrap section failed",
						logger.String("section", name),
						logger.Error(err))
				}
				mu.Lock()
				sectionErrors[name] = err.Error()
				mu.Unlock()
			}
		}()
	}

	section("channels", func() error {
		channels, err := c.cachedChannels(reqCtx, sid, false)
		if err != nil {
			return err
		}
		mu.Lock()
		body.Channels = channels
		mu.Unlock()
		return nil
	})
	section("otaChannels", func() error {
		channels, err := c.cachedChannels(reqCtx, sid, true)
		if err != nil {
			return err
		}
		mu.Lock()
		body.OTAChannels = channels
		mu.Unlock()
		return nil
	})
	section("compsets", func() error {
		properties, err := c.cachedProperties(reqCtx, sid, true)
		if err != nil {
			return err
		}
		mu.Lock()
		body.Compsets = properties
		mu.Unlock()
		return nil
	})
	section("alerts", func() error {
		alerts, err := c.repo.ListAlerts(reqCtx, repository.AlertFilter{SID: sid})
		if err != nil {
			return err
		}
		lookups, err := c.lookups(reqCtx, sid)
		if err != nil {
			return err
		}
		rows := alerting.CompileRows(alerts, lookups)
		mu.Lock()
		body.Alerts = rows
		mu.Unlock()
		return nil
	})

	wg.Wait()

	var firstErr error
	if len(sectionErrors) > 0 {
		body.Errors = sectionErrors
		firstErr = fmt.Errorf("%d bootstrap sections failed", len(sectionErrors))
	}
	metrics.ObserveBootstrap(firstErr, time.Since(start))

	return c.ok(ctx, body)
}
