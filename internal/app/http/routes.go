package routes

import (
	"net/http"
	"time"

	"chilljobs-api/internal/api/admin"
	authapi "chilljobs-api/internal/api/auth"
	"chilljobs-api/internal/api/billing"
	"chilljobs-api/internal/api/jobs"
	stripewebhooks "chilljobs-api/internal/api/stripewebhook"
	"chilljobs-api/internal/api/users"
	"chilljobs-api/internal/app/http/middleware"
	"chilljobs-api/internal/infra/ratelimit"
	"chilljobs-api/internal/session"
	"chilljobs-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps is everything the router hands to middleware and handlers.
type Deps struct {
	Store         store.Store
	Sessions      *session.Issuer
	Limiter       *ratelimit.Limiter
	Log           *zap.SugaredLogger
	InternalToken string
	EnforceExpiry bool
	Debug         bool
	CheckoutLimit int

	Auth    *authapi.Handler
	Billing *billing.Handler
	Webhook *stripewebhooks.Handler
	Users   *users.Handler
	Jobs    *jobs.Handler
	Admin   *admin.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.POST("/webhook", d.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Debug {
		r.GET("/checkout-debug", d.Billing.CheckoutDebug)
	}

	// input sanitization on public JSON routes only
	public := r.Group("/auth")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/register", d.Auth.Register)
	public.POST("/login", d.Auth.Login)
	r.GET("/auth/google", d.Auth.GoogleStart)
	r.GET("/auth/google/callback", d.Auth.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Sessions))
	auth.POST("/auth/session", d.Auth.RefreshSession)
	auth.GET("/me", d.Users.GetCurrentUser)

	billingGroup := auth.Group("/")
	billingGroup.Use(middleware.RateLimit(d.Limiter, "checkout", d.CheckoutLimit, time.Minute, d.Log))
	billingGroup.POST("/checkout", d.Billing.CreateCheckoutSession)
	billingGroup.POST("/billing-portal", d.Billing.CreateBillingPortal)

	// Jobs: anonymous callers allowed, policy from the store
	jobsGroup := r.Group("/jobs")
	jobsGroup.Use(middleware.OptionalAuth(d.Sessions), middleware.ResolvePolicy(d.Store, d.EnforceExpiry))
	jobsGroup.GET("", d.Jobs.ListJobs)
	jobsGroup.GET("/stats", d.Jobs.Stats)
	jobsGroup.GET("/:id", middleware.RequirePro(), d.Jobs.GetJob)

	// Service-to-service
	internal := r.Group("/internal")
	internal.Use(middleware.RequireInternalToken(d.InternalToken))
	internal.GET("/users", d.Admin.ListAllUsers)
	internal.POST("/users/upgrade", d.Admin.UpgradeUser)
	internal.POST("/users/downgrade", d.Admin.DowngradeUser)
}
