package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/coursemuster/portal/docs"
	"github.com/coursemuster/portal/internal/cache"
	"github.com/coursemuster/portal/internal/client"
	"github.com/coursemuster/portal/internal/config"
	"github.com/coursemuster/portal/internal/handlers"
	"github.com/coursemuster/portal/internal/logger"
	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/repositories"
	"github.com/coursemuster/portal/internal/scheduler"
	"github.com/coursemuster/portal/internal/services"
	"github.com/coursemuster/portal/internal/session"
	"github.com/coursemuster/portal/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title CourseMuster Portal API
// @version 1.0
// @description Student and admin portal in front of the CourseMuster course API

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. The access_token cookie is accepted too.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting CourseMuster Portal")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Course listing cache, disabled without Redis
	var listingCache services.ListingCache
	if cfg.Redis.Addr != "" {
		rdb, err := connectRedis(cfg.Redis)
		if err != nil {
			logger.Logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		if courseCache := cache.NewCourseCache(cache.NewRedisStore(rdb), cfg.Cache.TTL, logger.Logger); courseCache != nil {
			listingCache = courseCache
		}
	} else {
		logger.Logger.Info("REDIS_ADDR not set, course cache disabled")
	}

	// Initialize API clients
	courseAPI := client.NewCourseAPI(client.New(cfg.API.CourseBaseURL, cfg.API.Timeout, logger.Logger))
	authAPI := client.NewAuthAPI(client.New(cfg.API.AuthBaseURL, cfg.API.Timeout, logger.Logger))
	imageHost := client.NewImageHost(cfg.ImageHost.BaseURL, cfg.ImageHost.APIKey, cfg.API.Timeout, logger.Logger)
	tokenInspector := session.NewTokenInspector(cfg.JWT.Secret)
	if !tokenInspector.Verifies() {
		logger.Logger.Warn("JWT_SECRET not set, session token signatures are not verified")
	}

	// Initialize repositories
	progressRepo := repositories.NewLessonProgressRepository(db, logger.Logger)

	// Initialize services
	validator := validation.NewValidator()
	authService := services.NewAuthService(authAPI, validator, logger.Logger)
	catalogService := services.NewCatalogService(courseAPI, listingCache, logger.Logger)
	courseDetailService := services.NewCourseDetailService(courseAPI, logger.Logger)
	checkoutService := services.NewCheckoutService(courseAPI, listingCache, validator, logger.Logger)
	lessonViewerService := services.NewLessonViewerService(courseAPI, progressRepo, validator, logger.Logger)
	dashboardService := services.NewDashboardService(courseAPI, logger.Logger)
	courseManagerService := services.NewCourseManagerService(courseAPI, imageHost, listingCache, validator, logger.Logger)
	lessonAuthoringService := services.NewLessonAuthoringService(courseAPI, listingCache, validator, logger.Logger)
	studentDirectoryService := services.NewStudentDirectoryService(courseAPI, logger.Logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, logger.Logger)
	catalogHandler := handlers.NewCatalogHandler(catalogService, courseDetailService, logger.Logger)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, logger.Logger)
	lessonHandler := handlers.NewLessonHandler(lessonViewerService, logger.Logger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, logger.Logger)
	adminHandler := handlers.NewAdminHandler(courseManagerService, lessonAuthoringService, studentDirectoryService, logger.Logger)

	// Catalog warm-up
	var warmup *scheduler.Scheduler
	if cfg.Cache.WarmupSchedule != "" && listingCache != nil {
		warmup, err = scheduler.NewScheduler(cfg.Cache.WarmupSchedule, catalogService, logger.Logger)
		if err != nil {
			logger.Logger.Fatal("Failed to create warm-up scheduler", zap.Error(err))
		}
		warmup.Start()
	}

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger.Logger))
	r.Use(middleware.Recovery(logger.Logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middleware.RequestSizeLimit(middleware.DefaultMaxRequestSize))
	r.Use(middleware.Session(tokenInspector))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		catalogHandler.RegisterRoutes(r)
		checkoutHandler.RegisterRoutes(r)
		lessonHandler.RegisterRoutes(r)
		dashboardHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	if warmup != nil {
		warmup.Stop()
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// connectRedis connects to the course cache
func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "portal_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
