//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/nordfleet/fleet-core/internal/app/deliveries"
	"github.com/nordfleet/fleet-core/internal/app/middlewares"
	"github.com/nordfleet/fleet-core/internal/app/services"
	"github.com/nordfleet/fleet-core/internal/infrastructures"
)

// Infrastructure providers
var infrastructureSet = wire.NewSet(
	infrastructures.NewDatabase,
	infrastructures.NewRedisClient,
	infrastructures.NewValidator,
	infrastructures.NewSanitizer,
	wire.Value("fleet"),
	wire.Bind(new(middlewares.RateLimiter), new(*middlewares.RedisRateLimiter)),
	middlewares.NewRedisRateLimiter,
)

// Service providers
var serviceSet = wire.NewSet(
	services.NewCarService,
	services.NewActivityService,
)

// Middleware providers
var middlewareSet = wire.NewSet(
	middlewares.NewRateLimitMiddleware,
)

// Handler providers
var handlerSet = wire.NewSet(
	deliveries.NewHealthHandler,
	deliveries.NewCarHandler,
	deliveries.NewActivityHandler,
	wire.Struct(new(Application), "*"),
)

// InitializeApplication initializes the application with all its dependencies
func InitializeApplication() (*Application, error) {
	wire.Build(
		infrastructureSet,
		serviceSet,
		middlewareSet,
		handlerSet,
	)
	return &Application{}, nil
}
