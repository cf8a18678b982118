package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"spotshare/internal/api"
	"spotshare/internal/auth"
	"spotshare/internal/booking"
	"spotshare/internal/config"
	"spotshare/internal/events"
	"spotshare/internal/payment"
	"spotshare/internal/scheduler"
	"spotshare/internal/spot"
	"spotshare/internal/wallet"
)

// Handlers groups everything the router mounts. Payment and History are
// optional and their routes are skipped when nil.
type Handlers struct {
	Spots    *spot.Handler
	Bookings *booking.Handler
	Wallet   *wallet.Handler
	Payment  *payment.Handler
	History  *events.HistoryHandler
	Runner   *scheduler.Runner
	Ping     func(ctx context.Context) error
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, h Handlers) *Server {
	api.UseJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware(cfg.Server.AllowOrigins))

	router.GET("/health", Health(h.Ping))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	if h.Payment != nil {
		// the gateway signs the body, it carries no bearer token
		router.POST("/payments/webhook", h.Payment.Webhook)
	}

	authMiddleware := auth.AuthMiddleware(cfg.Auth.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware, RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		protected.POST("/spots", h.Spots.Create)
		protected.GET("/spots", h.Spots.List)
		protected.GET("/spots/:spotID", h.Spots.Get)
		protected.PATCH("/spots/:spotID/status", h.Spots.SetStatus)
		protected.PUT("/spots/:spotID/schedule", h.Spots.ReplaceSchedule)
		protected.POST("/spots/:spotID/blackouts", h.Spots.AddBlackout)
		protected.DELETE("/spots/:spotID/blackouts/:date", h.Spots.RemoveBlackout)
		protected.POST("/spots/:spotID/availability", h.Spots.CheckAvailability)

		protected.POST("/spots/:spotID/bookings", h.Bookings.Create)
		protected.GET("/bookings/incoming", h.Bookings.ListIncoming)
		protected.GET("/bookings/outgoing", h.Bookings.ListOutgoing)
		protected.POST("/bookings/:bookingID/accept", h.Bookings.Accept)
		protected.POST("/bookings/:bookingID/reject", h.Bookings.Reject)

		protected.GET("/wallet", h.Wallet.GetBalance)
		protected.GET("/wallet/transactions", h.Wallet.ListTransactions)

		if h.Payment != nil {
			protected.POST("/bookings/:bookingID/checkout", h.Payment.BookingCheckout)
			protected.POST("/wallet/checkout", h.Payment.TopUp)
			protected.POST("/payments/verify", h.Payment.Verify)
		}
		if h.History != nil {
			protected.GET("/events/recent", h.History.Recent)
		}
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/maintenance/run", RunMaintenance(h.Runner))
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks until the server stops. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
