// Package main runs the attendance and evaluation API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-events/backend/config"
	"github.com/aura-events/backend/internal/attendance"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/checkins"
	"github.com/aura-events/backend/internal/evaluations"
	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/geofence"
	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/pins"
	"github.com/aura-events/backend/internal/realtime"
	"github.com/aura-events/backend/internal/reports"
	"github.com/aura-events/backend/internal/users"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/redis"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.ReportsBucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
			Endpoint:             cfg.AWS.S3Endpoint,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, report archives unavailable", zap.Error(err))
		}
	}

	campuses, err := geofence.NewTable(cfg.Geofence.Campuses, cfg.Geofence.CampusRadiusMeters)
	if err != nil {
		logger.Fatal("campus zones", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	eventRepo := events.NewRepository(pool)
	userRepo := users.NewRepository(pool)

	// PIN authority and PIN check-ins
	pinAuthority := pins.NewAuthority(pins.NewRepository(pool), logger, pins.WithMetrics(m))
	pinHandler := pins.NewHandler(pinAuthority)
	ledger := checkins.NewLedger(checkins.NewRepository(pool), pinAuthority, campuses, logger, checkins.WithMetrics(m))
	checkinHandler := checkins.NewHandler(ledger)

	// Event attendance
	attendanceRepo := attendance.NewRepository(pool)
	attendanceSvc := attendance.NewService(attendanceRepo, eventRepo, userRepo, cfg.Geofence.EventCheckInRadiusMeters, logger,
		attendance.WithMetrics(m), attendance.WithNotifier(hub))
	attendanceHandler := attendance.NewHandler(attendanceSvc)

	// Evaluations
	evaluationRepo := evaluations.NewRepository(pool)
	engine := evaluations.NewEngine(evaluationRepo, eventRepo, logger, evaluations.WithMetrics(m))
	evaluationHandler := evaluations.NewHandler(engine)

	// Reports
	reportOpts := []reports.Option{reports.WithMetrics(m), reports.WithAttendance(attendanceRepo)}
	if s3Client != nil {
		reportOpts = append(reportOpts, reports.WithArchiving(reports.NewArchiveRepository(pool), queue.NewQueue(rdb.Client, logger), s3Client))
	}
	reportSvc := reports.NewService(eventRepo, evaluationRepo, logger, reportOpts...)
	reportHandler := reports.NewHandler(reportSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", health(pool, rdb))
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer)
	evaluators := middleware.RequireRole(models.RoleAdmin, models.RoleEvaluator)

	api := router.Group("/api/v1")
	api.Use(middleware.JWT(jwtService))
	{
		// PINs
		api.POST("/pins", admin, pinHandler.Generate)
		api.GET("/pins/active", admin, pinHandler.GetActive)
		api.POST("/pins/validate", pinHandler.Validate)

		// PIN check-ins
		api.POST("/checkins", checkinHandler.CheckIn)
		api.POST("/checkins/checkout", checkinHandler.CheckOut)

		// Event attendance
		api.POST("/events/:id/attendance/check-in", attendanceHandler.CheckIn)
		api.POST("/events/:id/attendance/check-out", attendanceHandler.CheckOut)
		api.GET("/events/:id/attendance", staff, attendanceHandler.List)

		// Evaluations
		api.POST("/presentations/:id/evaluations", evaluators, evaluationHandler.Start)
		api.POST("/evaluations/:id/submit", evaluators, evaluationHandler.Submit)
		api.GET("/presentations/:id/evaluations", evaluationHandler.ByPresentation)
		api.GET("/evaluators/:id/evaluations", evaluationHandler.ByEvaluator)
		api.GET("/events/:id/evaluations", evaluationHandler.ByEvent)

		// Reports
		api.GET("/presentations/:id/report", reportHandler.Presentation)
		api.GET("/events/:id/report", reportHandler.Event)
		api.POST("/events/:id/report/archive", admin, reportHandler.Archive)
		api.GET("/events/:id/report/archives", admin, reportHandler.Archives)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.Validate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func health(pool *pgxpool.Pool, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Healthy(ctx); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
