package deliveries

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nordfleet/fleet-core/internal/app/errors"
	"github.com/nordfleet/fleet-core/internal/app/middlewares"
	"github.com/nordfleet/fleet-core/internal/app/models"
	"github.com/nordfleet/fleet-core/internal/app/pkg"
	"github.com/nordfleet/fleet-core/internal/app/services"
)

type ActivityHandler struct {
	activityService     *services.ActivityService
	rateLimitMiddleware *middlewares.RateLimitMiddleware
}

func NewActivityHandler(activityService *services.ActivityService, rateLimitMiddleware *middlewares.RateLimitMiddleware) *ActivityHandler {
	return &ActivityHandler{
		activityService:     activityService,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (h *ActivityHandler) RegisterRoutes(router fiber.Router) {
	logGroup := router.Group("/api/activity-logs")

	logGroup.Get("/", h.GetLogs)
	// Export scans the full filtered set, so it gets the stricter rate
	logGroup.Get("/export", h.rateLimitMiddleware.LimitByIP(middlewares.ExportLimit), h.ExportLogs)
}

func (h *ActivityHandler) GetLogs(c *fiber.Ctx) error {
	filter := filterFromQuery(c)

	limitStr := c.Query("limit")
	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return pkg.ErrorResponse(c, errors.NewBadRequestError("Limit must be an integer"))
		}
		filter.Limit = limit
	}

	logs, err := h.activityService.GetLogs(filter)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, logs)
}

func (h *ActivityHandler) ExportLogs(c *fiber.Ctx) error {
	filter := filterFromQuery(c)

	csv, err := h.activityService.ExportCSV(filter)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv;charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(
		"attachment; filename=aktivitetslogg_%s.csv", time.Now().Format("2006-01-02"),
	))

	return c.SendString(csv)
}

func filterFromQuery(c *fiber.Ctx) *models.ActivityLogFilter {
	return &models.ActivityLogFilter{
		CarID:     c.Query("carId"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Action:    c.Query("action"),
	}
}
