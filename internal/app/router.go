package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler       *handler.RideHandler
	InterestHandler   *handler.InterestHandler
	AssignmentHandler *handler.AssignmentHandler
	DriverHandler     *handler.DriverHandler
	StatsHandler      *handler.StatsHandler

	// ResponseStore backs Idempotency-Key replay. Leave nil to disable.
	ResponseStore  middleware.ResponseStore
	AllowedOrigins []string
	NewRelicApp    *newrelic.Application
	Logger         *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins...))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.ResponseStore, deps.Logger))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.ListRides)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)

			rides.POST("/:id/interests", deps.InterestHandler.RecordInterest)
			rides.GET("/:id/interests", deps.InterestHandler.ListInterests)
			rides.DELETE("/:id/interests/:driverId", deps.InterestHandler.RemoveInterest)

			rides.POST("/:id/timeout", deps.AssignmentHandler.TriggerTimeout)
			rides.GET("/:id/assignment", deps.AssignmentHandler.GetAssignment)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
		}

		// Admin routes.
		admin := v1.Group("/admin")
		{
			admin.POST("/rides/:id/assign", deps.AssignmentHandler.OverrideAssignment)
			admin.POST("/sweep", deps.AssignmentHandler.Sweep)
		}

		v1.GET("/stats", deps.StatsHandler.GetStats)
	}

	return router
}
