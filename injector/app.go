package injector

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nordfleet/fleet-core/internal/app/deliveries"
	"github.com/nordfleet/fleet-core/internal/app/middlewares"
)

// Application represents the main application container for fleet-core
type Application struct {
	HealthHandler       *deliveries.HealthHandler
	CarHandler          *deliveries.CarHandler
	ActivityHandler     *deliveries.ActivityHandler
	RateLimitMiddleware *middlewares.RateLimitMiddleware
}

// RegisterRoutes registers all application routes using a Fiber router
func (app *Application) RegisterRoutes(router fiber.Router) {
	// Apply global rate limit for the public API
	router.Use(app.RateLimitMiddleware.LimitByIP(middlewares.PublicAPILimit))

	app.HealthHandler.RegisterRoutes(router)
	app.CarHandler.RegisterRoutes(router)
	app.ActivityHandler.RegisterRoutes(router)
}
