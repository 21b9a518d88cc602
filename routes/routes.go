package routes

import (
	"time"

	"revisitly-backend/config"
	"revisitly-backend/controllers"
	"revisitly-backend/metrics"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services and middleware the router wires to handlers.
type Dependencies struct {
	Businesses    *services.BusinessService
	Checkins      *services.CheckinService
	Followups     *services.FollowupService
	Sweeps        *services.ReengagementService
	Billing       *services.BillingService
	Tokens        *utils.TokenIssuer
	CheckinLimit  *utils.RateLimiter
	WebhookSecret string
	AllowOrigins  []string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger())
	r.Use(metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	authController := controllers.NewAuthController(deps.Businesses)
	businessController := controllers.NewBusinessController(deps.Businesses)
	dashboardController := controllers.NewDashboardController(deps.Businesses)
	customerController := controllers.NewCustomerController(deps.Businesses, deps.Checkins, deps.Followups)
	checkinController := controllers.NewCheckinController(deps.Checkins)
	cronController := controllers.NewCronController(deps.Sweeps)
	webhookController := controllers.NewWebhookController(deps.Billing, deps.WebhookSecret)

	auth := r.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)

		auth.Use(deps.Tokens.AuthMiddleware())
		auth.GET("/me", authController.Me)
	}

	api := r.Group("/api")
	{
		// Public endpoints
		api.GET("/businesses/:slug", businessController.GetBySlug)
		api.POST("/checkin", deps.CheckinLimit.Middleware(), checkinController.Checkin)
		api.GET("/cron/followup", cronController.Followup)
		api.POST("/cron/followup", cronController.Followup)
		api.POST("/webhooks/stripe", webhookController.Stripe)
	}

	owner := api.Group("")
	owner.Use(deps.Tokens.AuthMiddleware())
	{
		// Settings stay reachable without a plan so owners can see why features are locked.
		owner.GET("/business", businessController.GetSettings)
		owner.PUT("/business", businessController.UpdateSettings)

		customers := owner.Group("/customers", controllers.RequireActivePlan(deps.Businesses))
		{
			customers.GET("", customerController.GetCustomers)
			customers.POST("", customerController.CreateCustomer)
			customers.POST("/:id/followup", customerController.SendFollowup)
		}

		owner.GET("/dashboard", controllers.RequireActivePlan(deps.Businesses), dashboardController.GetDashboardOverview)
	}

	return r
}
