package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/redis/go-redis/v9"

	"stocksense/internal/analytics"
	"stocksense/internal/caching"
	"stocksense/internal/common"
	"stocksense/internal/handlers"
	"stocksense/internal/jobs/background"
	"stocksense/internal/middleware"
	"stocksense/internal/repositories"
	"stocksense/internal/services"
)

const version = "1.0.0"

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret: %s", jwtSecret)
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			redisDB = db
		}
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// MinIO configuration
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"
	reportBucket := os.Getenv("MINIO_REPORT_BUCKET")
	if reportBucket == "" {
		reportBucket = "stocksense-reports"
	}

	exportSvc, err := services.NewExportService(minioEndpoint, minioAccessKey, minioSecretKey, useSSL, reportBucket)
	if err != nil {
		log.Fatalf("Failed to initialize export service: %v", err)
	}

	// Create repositories
	itemRepo := repositories.NewItemRepo(pool)
	locationRepo := repositories.NewLocationRepo(pool)
	inventoryRepo := repositories.NewInventoryRepo(pool)
	forecastRepo := repositories.NewForecastRepo(pool)
	policyRepo := repositories.NewPolicyRepo(pool)
	exceptionRepo := repositories.NewExceptionRepo(pool)
	kpiRepo := repositories.NewKPIRepo(pool)
	abcRepo := repositories.NewABCRepo(pool)
	orderRepo := repositories.NewOrderLineRepo(pool)

	// Shared infrastructure
	cacheSvc := caching.NewCacheService(redisClient)
	locks := common.NewKeyLock()

	// Create services
	inventorySvc := services.NewInventoryService(inventoryRepo, itemRepo, locationRepo, locks)
	forecastSvc := services.NewForecastService(forecastRepo)
	policySvc := services.NewPolicyService(policyRepo, forecastRepo, inventoryRepo, itemRepo, abcRepo, cacheSvc, locks, services.DefaultPolicyConfig())
	abcSvc := services.NewABCService(abcRepo, itemRepo, inventoryRepo, cacheSvc, services.DefaultABCConfig())
	exceptionSvc := services.NewExceptionService(exceptionRepo, inventoryRepo, forecastRepo, services.DefaultDetectorConfig())

	analyticsConfig := analytics.DefaultConfig()
	if source := os.Getenv("STOCKOUT_SOURCE"); source != "" {
		analyticsConfig.StockoutSource = source
	}
	analyticsSvc := analytics.NewService(kpiRepo, orderRepo, inventoryRepo, itemRepo, exceptionRepo, forecastRepo, analyticsConfig)

	// Create handlers
	policyHandlers := handlers.NewPolicyHandlers(policySvc)
	exceptionHandlers := handlers.NewExceptionHandlers(exceptionSvc)
	inventoryHandlers := handlers.NewInventoryHandlers(inventorySvc)
	analyticsHandlers := handlers.NewAnalyticsHandlers(analyticsSvc, abcSvc, exportSvc)
	forecastHandlers := handlers.NewForecastHandlers(forecastSvc)

	// Create Echo instance
	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", handlers.ReadinessCheck(pool))

	// Protected API routes
	v1 := e.Group("/v1")
	v1.Use(echojwt.WithConfig(middleware.JWTConfig(jwtSecret)))
	v1.Use(middleware.UserContext())

	// Catalog routes
	v1.POST("/items", inventoryHandlers.CreateItem)
	v1.POST("/locations", inventoryHandlers.CreateLocation)

	// Inventory routes
	v1.GET("/inventory", inventoryHandlers.ListInventory)
	v1.GET("/inventory/movements", inventoryHandlers.ListMovements)
	v1.POST("/inventory/movements", inventoryHandlers.CreateMovement)
	v1.POST("/inventory/transfers", inventoryHandlers.CreateTransfer)
	v1.POST("/inventory/reserve", inventoryHandlers.ReserveInventory)
	v1.POST("/inventory/release", inventoryHandlers.ReleaseInventory)
	v1.GET("/inventory/:itemID/:locationID", inventoryHandlers.GetInventory)

	// Demand inputs
	v1.POST("/orders/lines", analyticsHandlers.IngestOrderLine)

	// Forecast routes
	v1.POST("/forecasts", forecastHandlers.IngestForecast)
	v1.GET("/forecasts/:itemID/:locationID", forecastHandlers.GetLatestForecast)

	// Policy routes
	v1.GET("/policies", policyHandlers.ListActivePolicies)
	v1.POST("/policies/recompute", policyHandlers.RecomputePolicy)
	v1.POST("/policies/preview", policyHandlers.PreviewPolicy)
	v1.GET("/policies/:itemID/:locationID", policyHandlers.GetActivePolicy)
	v1.GET("/policies/:itemID/:locationID/versions", policyHandlers.ListPolicyVersions)

	// Exception routes
	v1.GET("/exceptions", exceptionHandlers.ListExceptions)
	v1.POST("/exceptions/sweep", exceptionHandlers.SweepExceptions)
	v1.GET("/exceptions/:id", exceptionHandlers.GetException)
	v1.POST("/exceptions/:id/acknowledge", exceptionHandlers.AcknowledgeException)
	v1.POST("/exceptions/:id/start", exceptionHandlers.StartException)
	v1.POST("/exceptions/:id/resolve", exceptionHandlers.ResolveException)
	v1.POST("/exceptions/:id/close", exceptionHandlers.CloseException)

	// Analytics routes
	v1.GET("/kpi", analyticsHandlers.GetKPI)
	v1.POST("/kpi/rollup", analyticsHandlers.RollupKPI)
	v1.GET("/kpi/period/:period", analyticsHandlers.ListKPI)
	v1.GET("/kpi/period/:period/export", analyticsHandlers.ExportKPI)
	v1.GET("/abc/latest", analyticsHandlers.GetLatestABC)
	v1.POST("/abc/run", analyticsHandlers.RunABC)
	v1.GET("/abc/:id", analyticsHandlers.GetABC)
	v1.GET("/abc/:id/export", analyticsHandlers.ExportABC)

	// Background jobs
	jobScheduler := background.NewJobScheduler(exceptionSvc, abcSvc, analyticsSvc, locationRepo)
	if err := jobScheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer jobScheduler.Stop()

	// Start server
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("StockSense engine v%s starting on port %d", version, port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
