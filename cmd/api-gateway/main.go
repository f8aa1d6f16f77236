package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-booking-api/api/swagger"
	"github.com/noah-isme/tutor-booking-api/internal/events"
	"github.com/noah-isme/tutor-booking-api/internal/handler"
	"github.com/noah-isme/tutor-booking-api/internal/mailer"
	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	"github.com/noah-isme/tutor-booking-api/pkg/cache"
	"github.com/noah-isme/tutor-booking-api/pkg/capability"
	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
	"github.com/noah-isme/tutor-booking-api/pkg/export"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
	"github.com/noah-isme/tutor-booking-api/pkg/timezone"
)

// @title Tutor Booking API
// @version 1.0.0
// @description Tutoring session availability and reservations
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("files", applied))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and cross-instance feed", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()
	calendar := timezone.NewCalendar(cfg.Booking.Timezone, nil)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	userRepo := repository.NewUserRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	reservationRepo := repository.NewReservationRepository(db)

	authSvc := service.NewAuthService(userRepo, tutorRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	tutorSvc := service.NewTutorService(tutorRepo, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, tutorRepo, cacheSvc, cfg.Cache.TTL, validate, logr)
	holidaySvc := service.NewHolidayService(holidayRepo, tutorRepo, validate, logr)
	resolverSvc := service.NewResolverService(availabilitySvc, holidaySvc, reservationRepo, calendar, service.ResolverConfig{
		LeadTime:           cfg.Booking.LeadTime,
		PrivilegedLeadTime: cfg.Booking.PrivilegedLeadTime,
	}, logr)
	pdfExporter, err := export.LoadPDFExporter(cfg.Export.PDFFontPath)
	if err != nil {
		logr.Warn("pdf font unavailable, falling back to core font", zap.String("path", cfg.Export.PDFFontPath), zap.Error(err))
		pdfExporter = export.NewPDFExporter()
	}
	if !pdfExporter.UnicodeFont() {
		logr.Warn("pdf exports use the core font, set EXPORT_PDF_FONT for Hangul text")
	}
	exportSvc := service.NewExportService(resolverSvc, tutorRepo, nil, pdfExporter, logr)

	notificationSvc := service.NewNotificationService(mailer.New(cfg.Mail, logr), service.NotificationConfig{
		Enabled:         cfg.Notifications.Enabled,
		OperatorAddress: cfg.Mail.OperatorAddress,
		Workers:         cfg.Notifications.Workers,
		MaxRetries:      cfg.Notifications.MaxRetries,
		RetryDelay:      cfg.Notifications.RetryDelay,
	}, metrics, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	eventPublisher, err := events.NewNatsPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logr)
	if err != nil {
		logr.Warn("nats unavailable, domain events disabled", zap.Error(err))
		eventPublisher = events.NoopPublisher{}
	}
	defer eventPublisher.Close()

	var ledger *service.ReservationService
	feed := service.NewReservationFeed(func(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
		return ledger.Snapshot(ctx, filter)
	}, metrics, logr)
	defer feed.Close()

	var bus *repository.ChangeBus
	if redisClient != nil {
		bus = repository.NewChangeBus(redisClient, cfg.Feed.Channel, logr)
		go feed.Listen(ctx, bus, cfg.Feed.ReconnectDelay)
	}
	publishers := changePublishers(eventPublisher, feed, bus)

	ledger = service.NewReservationService(
		reservationRepo,
		tutorRepo,
		resolverSvc,
		capability.NewSigner(cfg.EditTokens.Secret, cfg.EditTokens.TTL),
		service.ReservationHooks{Notifier: notificationSvc, Publishers: publishers, Feed: feed},
		metrics,
		validate,
		logr,
	)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}

	r := gin.New()
	registerRoutes(r, cfg, routeDeps{
		logger:        logr,
		auth:          authSvc,
		metrics:       metrics,
		limiter:       middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, logr),
		authH:         handler.NewAuthHandler(authSvc),
		tutorH:        handler.NewTutorHandler(tutorSvc),
		availabilityH: handler.NewAvailabilityHandler(availabilitySvc),
		holidayH:      handler.NewHolidayHandler(holidaySvc),
		scheduleH:     handler.NewScheduleHandler(resolverSvc, exportSvc),
		reservationH:  handler.NewReservationHandler(ledger, cfg.Feed.Heartbeat),
		metricsH:      handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	feed.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// changePublishers always wakes the local feed directly so a failing bus never
// leaves this instance's subscribers stale. Duplicate wakeups coalesce.
func changePublishers(domain service.ChangePublisher, feed *service.ReservationFeed, bus *repository.ChangeBus) []service.ChangePublisher {
	publishers := []service.ChangePublisher{domain, feed}
	if bus != nil {
		publishers = append(publishers, bus)
	}
	return publishers
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
