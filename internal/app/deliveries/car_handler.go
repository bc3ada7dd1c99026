package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nordfleet/fleet-core/internal/app/models"
	"github.com/nordfleet/fleet-core/internal/app/pkg"
	"github.com/nordfleet/fleet-core/internal/app/services"
)

type CarHandler struct {
	carService *services.CarService
}

func NewCarHandler(carService *services.CarService) *CarHandler {
	return &CarHandler{
		carService: carService,
	}
}

func (h *CarHandler) RegisterRoutes(router fiber.Router) {
	carGroup := router.Group("/api/cars")

	// Static paths first so they don't get captured by the :id routes
	carGroup.Patch("/end-all-trips", h.EndAllTrips)
	carGroup.Post("/seed", h.SeedCars)

	carGroup.Get("/", h.GetCars)
	carGroup.Get("/:id", h.GetCar)
	carGroup.Post("/", h.CreateCar)
	carGroup.Put("/:id", h.UpdateCar)
	carGroup.Patch("/:id/driver", h.UpdateDriver)
	carGroup.Patch("/:id/maintenance", h.SetMaintenance)
	carGroup.Delete("/:id", h.DeleteCar)
}

func (h *CarHandler) GetCars(c *fiber.Ctx) error {
	cars, err := h.carService.GetCars()
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, cars)
}

func (h *CarHandler) GetCar(c *fiber.Ctx) error {
	id := c.Params("id")

	car, err := h.carService.GetCar(id)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, car)
}

func (h *CarHandler) CreateCar(c *fiber.Ctx) error {
	var req models.CarCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	car, err := h.carService.CreateCar(&req, actorFromRequest(c, req.UserID))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, car)
}

func (h *CarHandler) UpdateCar(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.CarUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	car, err := h.carService.UpdateCar(id, &req, actorFromRequest(c, req.UserID))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, car)
}

func (h *CarHandler) UpdateDriver(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.DriverUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	car, err := h.carService.UpdateDriver(id, &req, actorFromRequest(c, req.UserID))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, car)
}

func (h *CarHandler) SetMaintenance(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.MaintenanceRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	car, err := h.carService.SetMaintenance(id, &req, actorFromRequest(c, req.UserID))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, car)
}

func (h *CarHandler) EndAllTrips(c *fiber.Ctx) error {
	// Body is optional here; an empty body means the system actor
	var req models.EndAllTripsRequest
	_ = c.BodyParser(&req)

	count, err := h.carService.EndAllTrips(actorFromRequest(c, req.UserID))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, models.EndAllTripsResponse{
		Message:     "All trips ended successfully",
		CarsUpdated: count,
	})
}

func (h *CarHandler) DeleteCar(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.CarDeleteRequest
	_ = c.BodyParser(&req)

	if err := h.carService.DeleteCar(id, actorFromRequest(c, req.UserID)); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, "Car deleted successfully")
}

func (h *CarHandler) SeedCars(c *fiber.Ctx) error {
	count, err := h.carService.SeedCars()
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.CreatedResponse(c, fiber.Map{"seeded": count})
}

func actorFromRequest(c *fiber.Ctx, userID string) models.Actor {
	return models.Actor{
		UserID:    userID,
		IPAddress: pkg.ClientIP(c),
		UserAgent: c.Get("User-Agent"),
	}
}
