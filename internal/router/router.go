package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tilawah-registration/internal/config"
	"github.com/iliyamo/tilawah-registration/internal/handler"
	"github.com/iliyamo/tilawah-registration/internal/middleware"
)

// RegisterRoutes wires every endpoint onto the provided Echo
// instance. Public routes carry no authentication; the submission
// endpoint is rate limited; the admin group requires an ADMIN bearer
// token.
func RegisterRoutes(e *echo.Echo, reg *handler.RegistrationHandler, avail *handler.AvailabilityHandler, admin *handler.AdminHandler, rdb *redis.Client, jwtSecret string) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Public registration surface. The token bucket sits only on the
	// submission route: reads are cheap, the conditional insert is not.
	e.POST("/v1/registrations", reg.Submit, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.GET("/v1/slots", avail.Slots)
	e.GET("/v1/availability", avail.Snapshot)
	e.GET("/v1/availability/watch", avail.Watch)
	e.GET("/v1/settings/form-title", reg.FormTitle)

	// Administrative surface. Tokens are minted out of band; see
	// middleware.AdminAuth.
	g := e.Group("/v1/admin", middleware.AdminAuth(jwtSecret))
	g.POST("/slots", admin.CreateSlot)
	g.PATCH("/slots/:id", admin.UpdateSlot)
	g.DELETE("/slots/:id", admin.DeleteSlot)
	g.GET("/registrations", admin.ListRegistrations)
	g.DELETE("/registrations/:id", admin.DeleteRegistration)
	g.PUT("/settings/capacity", admin.UpdateCapacity)
	g.PUT("/settings/form-title", admin.UpdateFormTitle)
}
