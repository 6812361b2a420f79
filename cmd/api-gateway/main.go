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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-homework-api/api/swagger"
	"github.com/noah-isme/sma-homework-api/internal/handler"
	"github.com/noah-isme/sma-homework-api/internal/middleware"
	"github.com/noah-isme/sma-homework-api/internal/repository"
	"github.com/noah-isme/sma-homework-api/internal/service"
	"github.com/noah-isme/sma-homework-api/pkg/cache"
	"github.com/noah-isme/sma-homework-api/pkg/config"
	"github.com/noah-isme/sma-homework-api/pkg/database"
	"github.com/noah-isme/sma-homework-api/pkg/gcalendar"
	"github.com/noah-isme/sma-homework-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-homework-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-homework-api/pkg/middleware/requestid"
)

// @title SMA Homework API
// @version 1.0.0
// @description Homework tracking with Google Calendar synchronisation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

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

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(database.URL(cfg.Database)); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()
	timezones := service.NewTimezoneResolver(logr)

	homeworkRepo := repository.NewHomeworkRepository(db)
	classRepo := repository.NewClassRepository(db)
	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewCalendarLinkRepository(db)

	redisClient := newRedisClient(ctx, cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}
	locker := newRecordLocker(redisClient, logr)

	googleCfg := gcalendar.Config{
		ClientID:        cfg.Google.ClientID,
		ClientSecret:    cfg.Google.ClientSecret,
		RedirectURL:     cfg.Google.RedirectURL,
		CalendarID:      cfg.Google.CalendarID,
		Endpoint:        cfg.Google.CalendarEndpoint,
		RateLimitPerMin: cfg.Google.RateLimitPerMin,
	}

	authCfg := service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		StateTTL:          cfg.JWT.StateTTL,
		Issuer:            cfg.JWT.Issuer,
	}

	var (
		remote  service.RemoteCalendarClient
		authSvc *service.AuthService
	)
	if cfg.Google.Configured() {
		remote = gcalendar.NewGoogleClient(googleCfg)
		authSvc = service.NewAuthService(userRepo, gcalendar.NewOAuthProvider(googleCfg), timezones, validate, logr, authCfg)
	} else {
		logr.Warn("google oauth client not configured, using in-memory calendar")
		remote = gcalendar.NewMemoryClient()
		authSvc = service.NewAuthService(userRepo, nil, timezones, validate, logr, authCfg)
	}

	syncSvc := service.NewCalendarSyncService(remote, linkRepo, classRepo, timezones, metrics, service.CalendarSyncConfig{
		Disabled:         !cfg.CalendarSync.Enabled,
		RequestTimeout:   cfg.CalendarSync.RequestTimeout,
		CompletionPolicy: cfg.CalendarSync.CompletionPolicy,
	}, logr)

	homeworkSvc := service.NewHomeworkService(homeworkRepo, classRepo, userRepo, syncSvc, locker, validate, service.HomeworkServiceConfig{
		LockTTL:   cfg.CalendarSync.RecordLockTTL,
		Timezones: timezones,
		Metrics:   metrics,
	}, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	calendarSvc := service.NewCalendarService(homeworkRepo, userRepo, syncSvc, locker, service.CalendarServiceConfig{
		Enabled: cfg.CalendarSync.Enabled,
		LockTTL: cfg.CalendarSync.RecordLockTTL,
	}, logr)
	exportSvc := service.NewExportService(homeworkRepo, logr)
	dashboardParams := service.DashboardServiceParams{
		Repo:      repository.NewDashboardRepository(db),
		Users:     userRepo,
		Timezones: timezones,
		Metrics:   metrics,
		Logger:    logr,
		Config:    service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	}
	if redisClient != nil {
		dashboardParams.Cache = repository.NewCacheRepository(redisClient, "homework:")
	}
	dashboardSvc := service.NewDashboardService(dashboardParams)

	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Homework:  handler.NewHomeworkHandler(homeworkSvc, exportSvc),
		Class:     handler.NewClassHandler(classSvc),
		Calendar:  handler.NewCalendarHandler(calendarSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Metrics:   metricsHandler,
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "calendar_sync", cfg.CalendarSync.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newRedisClient returns nil when Redis is disabled or unreachable so the
// caller falls back to in-process locks and an uncached dashboard.
func newRedisClient(ctx context.Context, cfg *config.Config, logr *zap.Logger) *redis.Client {
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-process record locks without dashboard cache", zap.Error(err))
		return nil
	}
	return client
}

// newRecordLocker prefers Redis so locks hold across replicas.
func newRecordLocker(client *redis.Client, logr *zap.Logger) repository.RecordLocker {
	if client == nil {
		return repository.NewMemoryRecordLocker()
	}
	return repository.NewRedisRecordLocker(client, logr)
}
