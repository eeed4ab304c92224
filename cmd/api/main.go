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

	_ "github.com/noah-isme/sma-attendance-api/api/swagger"
	"github.com/noah-isme/sma-attendance-api/internal/handler"
	"github.com/noah-isme/sma-attendance-api/internal/middleware"
	"github.com/noah-isme/sma-attendance-api/internal/repository"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/cache"
	"github.com/noah-isme/sma-attendance-api/pkg/config"
	"github.com/noah-isme/sma-attendance-api/pkg/database"
	"github.com/noah-isme/sma-attendance-api/pkg/jobs"
	"github.com/noah-isme/sma-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-attendance-api/pkg/storage"
)

// @title SMA Attendance API
// @version 1.0.0
// @description Attendance status resolution, excuse letter reconciliation and weighted grades
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	readiness := map[string]handler.Pinger{"postgres": db}

	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, grade cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			readiness["redis"] = redisPinger{client: client}
		}
	}

	metricsSvc := service.NewMetricsService()
	var gradeCache *service.CacheService
	if cacheRepo != nil {
		gradeCache = service.NewCacheService(cacheRepo, metricsSvc, cfg.Grades.CacheTTL, logr, cfg.Grades.CacheEnabled)
	}

	attendanceRepo := repository.NewAttendanceRepository(db)
	letterRepo := repository.NewExcuseLetterRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	classRepo := repository.NewClassRepository(db)
	taskGradeRepo := repository.NewTaskGradeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc := service.NewNotificationService(notificationRepo, metricsSvc, logr)
	notificationQueue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notificationQueue.Start(ctx)
	defer notificationQueue.Stop()
	notificationSvc.AttachQueue(notificationQueue)

	validate := validator.New()
	resolver := service.NewStatusResolver(cfg.Attendance.Location(), time.Now)

	// A nil CacheService reports every lookup as a miss.
	gradeSvc := service.NewGradeService(attendanceRepo, taskGradeRepo, enrollmentRepo, classRepo, gradeCache, cfg.Grades.CacheTTL, logr)

	attendanceSvc := service.NewAttendanceService(attendanceRepo, letterRepo, enrollmentRepo, classRepo, resolver, validate, logr, service.AttendanceOptions{
		Notifier:           notificationSvc,
		GradeCache:         gradeSvc,
		Metrics:            metricsSvc,
		SweepCutoffMinutes: cfg.Attendance.SweepCutoffMinutes,
	})

	letterOpts := service.ExcuseLetterOptions{Notifier: notificationSvc, Metrics: metricsSvc}
	if cfg.Attachments.SignedURLSecret != "" {
		letterOpts.Signer = storage.NewSignedURLSigner(cfg.Attachments.BaseURL, cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)
	}
	letterSvc := service.NewExcuseLetterService(letterRepo, classRepo, enrollmentRepo, attendanceSvc, resolver, validate, logr, letterOpts)

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	probes := handler.NewMetricsHandler(metricsSvc, readiness)
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", probes.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		ExcuseLetters: handler.NewExcuseLetterHandler(letterSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
	}, tokenSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
