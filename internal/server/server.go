package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"gympass/internal/access"
	"gympass/internal/auth"
	"gympass/internal/billing"
	"gympass/internal/checkin"
	"gympass/internal/config"
	"gympass/internal/identity"
	"gympass/internal/location"
	"gympass/internal/realtime"
	"gympass/internal/subscription"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, rdb *redis.Client, hub *realtime.Hub) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	identityHandler := identity.NewHandler(db, cfg.JWTSecret)
	accessHandler := access.NewHandler(db)
	locationHandler := location.NewHandler(db)
	subscriptionHandler := subscription.NewHandler(db)
	checkinHandler := checkin.NewHandler(db, realtime.NewPublisher(rdb), cfg.CheckinTokenTTL)
	realtimeHandler := realtime.NewHandler(db, hub)
	billingHandler := billing.NewHandler(db, cfg.BillingWebhookSecret, cfg.GracePeriod)

	public := router.Group("/auth")
	{
		public.POST("/register", identityHandler.Register)
		public.POST("/login", identityHandler.Login)
		public.POST("/refresh", identityHandler.Refresh)
	}

	router.GET("/plans", subscriptionHandler.ListPlans)
	router.POST("/webhooks/billing", billingHandler.HandleWebhook)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", identityHandler.GetMe)
		protected.GET("/locations", accessHandler.ListAccessible)
		protected.GET("/locations/:locationID/capacity", locationHandler.GetCapacityStatus)
		protected.POST("/subscriptions", subscriptionHandler.Create)
		protected.GET("/subscriptions", subscriptionHandler.List)
		protected.POST("/checkin/token", checkinHandler.IssueToken)
	}

	staffMiddleware := auth.RequireRole(auth.RoleStaff, auth.RoleOwner)
	staff := router.Group("/")
	staff.Use(authMiddleware, staffMiddleware)
	{
		staff.POST("/checkin/validate", checkinHandler.Validate)
		staff.POST("/checkin/manual", checkinHandler.Manual)
		staff.GET("/locations/:locationID/checkins", checkinHandler.ListRecent)
		staff.GET("/locations/:locationID/checkins/stream", realtimeHandler.Stream)
		staff.PUT("/locations/:locationID/capacity", locationHandler.UpsertCapacityLimit)
	}

	ownerMiddleware := auth.RequireRole(auth.RoleOwner)
	admin := router.Group("/admin")
	admin.Use(authMiddleware)
	{
		admin.POST("/chains", ownerMiddleware, locationHandler.CreateChain)
		admin.POST("/locations", ownerMiddleware, locationHandler.CreateLocation)
		admin.POST("/locations/:locationID/deactivate", ownerMiddleware, locationHandler.DeactivateLocation)
		admin.POST("/staff", ownerMiddleware, identityHandler.CreateStaff)
		admin.POST("/staff-assignments", ownerMiddleware, accessHandler.AssignStaff)

		// Grant management is staff-reachable; the handler checks the
		// caller's role at the target location.
		admin.POST("/members/:memberID/grants", staffMiddleware, accessHandler.CreateGrant)
		admin.POST("/grants/:grantID/status", staffMiddleware, accessHandler.UpdateGrantStatus)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
