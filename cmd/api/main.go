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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/elimu-labs/elimu-api/api/swagger"
	"github.com/elimu-labs/elimu-api/internal/handler"
	"github.com/elimu-labs/elimu-api/internal/middleware"
	"github.com/elimu-labs/elimu-api/internal/repository"
	"github.com/elimu-labs/elimu-api/internal/service"
	"github.com/elimu-labs/elimu-api/pkg/cache"
	"github.com/elimu-labs/elimu-api/pkg/config"
	"github.com/elimu-labs/elimu-api/pkg/database"
	"github.com/elimu-labs/elimu-api/pkg/jobs"
	"github.com/elimu-labs/elimu-api/pkg/logger"
	"github.com/elimu-labs/elimu-api/pkg/mail"
	corsmiddleware "github.com/elimu-labs/elimu-api/pkg/middleware/cors"
	reqidmiddleware "github.com/elimu-labs/elimu-api/pkg/middleware/requestid"
)

// @title Elimu School Management API
// @version 1.0.0
// @description Backend for school administration: students, classes, timetables, attendance, performance and reporting
// @BasePath /api
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	performanceRepo := repository.NewPerformanceRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Outbound mail goes through a worker queue. Without a SendGrid key the
	// console mailer just logs the messages.
	var mailer mail.Mailer
	if cfg.Mail.Enabled && cfg.Mail.SendGridKey != "" {
		mailer = mail.NewSendGridMailer(cfg.Mail.SendGridKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	} else {
		mailer = mail.NewConsoleMailer(logr)
	}
	mailSvc := service.NewMailService(mailer, logr, cfg.App.FrontendURL, jobs.QueueConfig{
		Workers:    cfg.Mail.QueueWorkers,
		BufferSize: cfg.Mail.QueueCapacity,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
	})

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled)

	authSvc := service.NewAuthService(userRepo, mailSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ActionTokenExpiry:  cfg.App.ActionTokenExpiry,
		Issuer:             "elimu-api",
		DefaultRole:        cfg.App.DefaultRole,
	})
	userSvc := service.NewUserService(userRepo, mailSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, studentRepo, assignmentRepo, userRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	assignmentSvc := service.NewTeacherAssignmentService(assignmentRepo, userRepo, subjectRepo, classRepo, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, classRepo, subjectRepo, userRepo, validate, logr)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, subjectRepo, classRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, classRepo, validate, logr)
	performanceSvc := service.NewPerformanceService(performanceRepo, assessmentRepo, studentRepo, validate, logr)
	reportSvc := service.NewReportService(reportRepo, studentRepo, cacheSvc, cfg.Reports.CacheTTL, logr)

	// Handlers.
	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		User:       handler.NewUserHandler(userSvc),
		Student:    handler.NewStudentHandler(studentSvc, attendanceSvc, performanceSvc),
		Class:      handler.NewClassHandler(classSvc, timetableSvc, performanceSvc),
		Subject:    handler.NewSubjectHandler(subjectSvc),
		Assignment: handler.NewAssignmentHandler(assignmentSvc),
		Timetable:  handler.NewTimetableHandler(timetableSvc),
		Assessment: handler.NewAssessmentHandler(assessmentSvc, performanceSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, reportSvc),
		Perf:       handler.NewPerformanceHandler(performanceSvc, reportSvc),
		Report:     handler.NewReportHandler(reportSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, userRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailSvc.Start(ctx)
	defer mailSvc.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
