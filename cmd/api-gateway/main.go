package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classroom-averages/api/swagger"
	"github.com/noah-isme/classroom-averages/internal/handler"
	internalmiddleware "github.com/noah-isme/classroom-averages/internal/middleware"
	"github.com/noah-isme/classroom-averages/internal/models"
	"github.com/noah-isme/classroom-averages/internal/repository"
	"github.com/noah-isme/classroom-averages/internal/service"
	"github.com/noah-isme/classroom-averages/pkg/cache"
	"github.com/noah-isme/classroom-averages/pkg/config"
	"github.com/noah-isme/classroom-averages/pkg/database"
	"github.com/noah-isme/classroom-averages/pkg/export"
	"github.com/noah-isme/classroom-averages/pkg/jobs"
	"github.com/noah-isme/classroom-averages/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-averages/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-averages/pkg/middleware/requestid"
)

// @title Classroom Averages API
// @version 1.0.0
// @description Weighted term, partial and final grade averages per classroom subject.
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	// A nil client keeps the cache repository in always-miss mode.
	var redisClient redis.UniversalClient
	if cfg.Averages.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, averages cache disabled", zap.Error(err))
		} else {
			redisClient = client
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	validate := validator.New()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Averages.CacheTTL, logr, redisClient != nil)

	classrooms := repository.NewClassroomRepository(db)
	students := repository.NewStudentRepository(db)
	subjects := repository.NewSubjectRepository(db)
	terms := repository.NewTermRepository(db)
	grades := repository.NewGradeRepository(db)
	reinforcements := repository.NewReinforcementRepository(db)

	averageSvc := service.NewAverageService(service.AverageServiceParams{
		Classrooms:     classrooms,
		Students:       students,
		Subjects:       subjects,
		Terms:          terms,
		Grades:         grades,
		Reinforcements: reinforcements,
		Pool:           jobs.NewPool("averages", jobs.PoolConfig{Workers: cfg.Averages.Workers, Logger: logr}),
		Cache:          cacheSvc,
		Metrics:        metrics,
		Validator:      validate,
		Logger:         logr,
		Config: service.AverageServiceConfig{
			DefaultMode: cfg.Averages.DefaultMode,
			GroupSize:   cfg.Averages.GroupSize,
			CacheTTL:    cfg.Averages.CacheTTL,
		},
	})
	gradeSvc := service.NewGradeService(service.GradeServiceParams{
		Classrooms:     classrooms,
		Students:       students,
		Subjects:       subjects,
		Terms:          terms,
		Grades:         grades,
		Reinforcements: reinforcements,
		Cache:          cacheSvc,
		Validator:      validate,
		Logger:         logr,
	})
	exportSvc := service.NewExportService(export.NewCSVExporter(), logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	readiness := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		readiness["cache"] = handler.PingFunc(cacheRepo.Ping)
	}
	var metricsHandler *handler.MetricsHandler
	if metrics != nil {
		metricsHandler = handler.NewMetricsHandler(metrics, readiness)
	} else {
		metricsHandler = handler.NewMetricsHandler(nil, readiness)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metrics != nil {
		r.Use(internalmiddleware.Metrics(metrics))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	averageHandler := handler.NewAverageHandler(averageSvc, exportSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)

	api := r.Group(cfg.APIPrefix)
	api.Use(
		internalmiddleware.JWT(tokenSvc),
		internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin),
		internalmiddleware.WithResponseMeta(),
	)
	api.GET("/classrooms/:classroomID/averages", averageHandler.Classroom)
	api.GET("/classrooms/:classroomID/subjects/:subjectID/averages", averageHandler.Subject)
	api.GET("/classrooms/:classroomID/grades", gradeHandler.ClassroomGrades)
	api.GET("/classrooms/:classroomID/terms/:termID/grades", gradeHandler.ClassroomGrades)
	api.GET("/classrooms/:classroomID/terms/:termID/reinforcement-grades", gradeHandler.ListReinforcements)
	api.POST("/grades", gradeHandler.Upsert)
	api.POST("/reinforcement-grades", gradeHandler.CreateReinforcement)
	api.DELETE("/reinforcement-grades/:id", gradeHandler.DeleteReinforcement)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
