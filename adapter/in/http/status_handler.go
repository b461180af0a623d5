package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/in"
	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
	"github.com/DaveBieleveld/TrackTime365/pkg/metrics"
)

const dateLayout = "2006-01-02"

// StatusHandler exposes the sync loop's state and manual run triggering.
type StatusHandler struct {
	syncer in.SyncUseCase
	stats  *metrics.Registry
}

func NewStatusHandler(syncer in.SyncUseCase, stats *metrics.Registry) *StatusHandler {
	return &StatusHandler{syncer: syncer, stats: stats}
}

func (h *StatusHandler) Register(app fiber.Router) {
	app.Get("/status", h.Status)
	app.Post("/sync/run", h.TriggerRun)
}

// Status returns the last completed run's report and stage timings.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	report := h.syncer.LastReport()
	if report == nil {
		return SuccessResponse(c, fiber.Map{"state": "no runs yet"})
	}
	return SuccessResponse(c, fiber.Map{
		"last_run": report,
		"timings":  h.stats.Summaries(),
	})
}

// TriggerRun starts a sync pass for the window around the given date
// (default today) and blocks until it finishes.
func (h *StatusHandler) TriggerRun(c *fiber.Ctx) error {
	center := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, apperr.CodeInvalidRange,
				"date must be formatted as "+dateLayout)
		}
		center = parsed
	}

	report, err := h.syncer.SyncAround(c.Context(), center)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, report)
}

// QueryHandler serves reads over the mirrored events.
type QueryHandler struct {
	queries in.QueryUseCase
}

func NewQueryHandler(queries in.QueryUseCase) *QueryHandler {
	return &QueryHandler{queries: queries}
}

func (h *QueryHandler) Register(app fiber.Router) {
	events := app.Group("/events")
	events.Get("/", h.EventsByDateRange)
	events.Get("/category/:name", h.EventsByCategory)
	events.Get("/:id/categories", h.EventCategories)
}

// EventsByDateRange returns events between from and to (whole days, UTC).
func (h *QueryHandler) EventsByDateRange(c *fiber.Ctx) error {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, apperr.CodeInvalidRange,
			"from must be formatted as "+dateLayout)
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, apperr.CodeInvalidRange,
			"to must be formatted as "+dateLayout)
	}

	window := domain.Window{Start: from, End: to.AddDate(0, 0, 1)}
	events, err := h.queries.EventsByDateRange(c.Context(), window, c.Query("user"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, fiber.Map{"events": events, "count": len(events)})
}

func (h *QueryHandler) EventsByCategory(c *fiber.Ctx) error {
	name := c.Params("name")
	events, err := h.queries.EventsByCategory(c.Context(), name, c.Query("user"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, fiber.Map{"events": events, "count": len(events)})
}

func (h *QueryHandler) EventCategories(c *fiber.Ctx) error {
	names, err := h.queries.EventCategories(c.Context(), c.Params("id"))
	if err != nil {
		return AppErrorResponse(c, err)
	}
	return SuccessResponse(c, fiber.Map{"categories": names})
}
