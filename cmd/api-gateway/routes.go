package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/handler"
	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/requestid"
)

type routeDeps struct {
	logger  *zap.Logger
	auth    *service.AuthService
	metrics *service.MetricsService
	limiter *middleware.RateLimiter

	authH         *handler.AuthHandler
	tutorH        *handler.TutorHandler
	availabilityH *handler.AvailabilityHandler
	holidayH      *handler.HolidayHandler
	scheduleH     *handler.ScheduleHandler
	reservationH  *handler.ReservationHandler
	metricsH      *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, d routeDeps) {
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.metricsH.Health)
	r.GET("/ready", d.metricsH.Ready)
	r.GET("/metrics", d.metricsH.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.JWT(d.auth)
	optionalAuth := middleware.OptionalJWT(d.auth)
	staff := middleware.RequireStaff()
	ownTutor := middleware.RequireTutorAccess("id")

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", d.authH.Login)
	authGroup.GET("/me", requireAuth, d.authH.Me)

	api.POST("/slots/generate", d.availabilityH.GenerateSlots)

	tutors := api.Group("/tutors")
	tutors.GET("", d.tutorH.List)
	tutors.GET("/:id", d.tutorH.Get)
	tutors.GET("/:id/availability", d.availabilityH.GetWeek)
	tutors.GET("/:id/availability/:day", d.availabilityH.GetDay)
	tutors.PUT("/:id/availability", requireAuth, d.availabilityH.ApplyToAllDays)
	tutors.PUT("/:id/availability/:day", requireAuth, d.availabilityH.SetDay)
	tutors.GET("/:id/holidays", d.holidayH.List)
	tutors.POST("/:id/holidays", requireAuth, d.holidayH.Create)
	tutors.PUT("/:id/holidays", requireAuth, d.holidayH.Replace)
	tutors.GET("/:id/bookable", optionalAuth, d.scheduleH.Bookable)
	tutors.GET("/:id/schedule", requireAuth, staff, ownTutor, d.scheduleH.Schedule)
	tutors.GET("/:id/schedule/export", requireAuth, staff, ownTutor, d.scheduleH.Export)

	api.DELETE("/holidays/:id", requireAuth, d.holidayH.Delete)

	reservations := api.Group("/reservations")
	reservations.GET("", requireAuth, staff, d.reservationH.List)
	reservations.GET("/feed", requireAuth, staff, d.reservationH.Feed)
	reservations.POST("", optionalAuth, d.limiter.Middleware(), d.reservationH.Create)
	reservations.GET("/:id", optionalAuth, d.reservationH.Get)
	reservations.PATCH("/:id", optionalAuth, d.reservationH.Update)
	reservations.DELETE("/:id", optionalAuth, d.reservationH.Cancel)
	reservations.POST("/:id/complete", requireAuth, staff, d.reservationH.Complete)
}
